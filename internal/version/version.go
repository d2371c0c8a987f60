// Package version reports what panelport binary is running. The release
// values are injected via -ldflags; binaries built with `go install` fall
// back to the module and VCS data recorded by the Go toolchain.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/hupe1980/panelport/internal/compat"
)

// Set via -ldflags "-X github.com/hupe1980/panelport/internal/version.version=...".
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info describes the running binary and the object migrations it ships.
type Info struct {
	Version    string   `json:"version"`
	GitCommit  string   `json:"gitCommit"`
	BuildDate  string   `json:"buildDate"`
	GoVersion  string   `json:"goVersion"`
	Platform   string   `json:"platform"`
	Migrations []string `json:"migrations"`
}

// GetInfo returns the build information of the running binary.
func GetInfo() Info {
	info := Info{
		Version:    version,
		GitCommit:  gitCommit,
		BuildDate:  buildDate,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Migrations: compat.DefaultChain().Steps(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(&info, bi)
	}

	info.GitCommit = shortCommit(info.GitCommit)

	return info
}

// fillFromBuildInfo replaces placeholder values with what the toolchain
// recorded. Injected values always win.
func fillFromBuildInfo(info *Info, bi *debug.BuildInfo) {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = strings.TrimPrefix(bi.Main.Version, "v")
	}

	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.GitCommit == "none":
			info.GitCommit = s.Value
		case s.Key == "vcs.time" && info.BuildDate == "unknown":
			info.BuildDate = s.Value
		}
	}
}

// String returns the version line printed by `panelport version`.
func (i Info) String() string {
	return fmt.Sprintf("panelport %s (commit: %s, built: %s, %s %s)\nmigrations: %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform, strings.Join(i.Migrations, ", "))
}

// UserAgent returns the User-Agent sent to Kibana.
func (i Info) UserAgent() string {
	return fmt.Sprintf("panelport/%s (%s)", i.Version, i.Platform)
}

// JSON returns the info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}

	return string(data), nil
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
