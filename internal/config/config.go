// Package config provides configuration management for panelport.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (PANELPORT_ prefix)
//  3. Config file (.panelport.yaml)
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Connection defaults.
const (
	DefaultKibanaURL  = "http://localhost:5601"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 5
	DefaultRetryWait  = time.Second
	DefaultReleaseKey = "version"
)

// Config represents the global configuration for panelport.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" json:"noColor"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// KibanaURL is the base URL of the platform.
	KibanaURL string `mapstructure:"kibana-url" json:"kibanaUrl" validate:"required,url"`

	// Username and Password enable basic authentication.
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"-" validate:"required_with=Username"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `mapstructure:"insecure-skip-verify" json:"insecureSkipVerify"`

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" validate:"gt=0"`

	// MaxRetries is the number of retries after a failed attempt.
	MaxRetries int `mapstructure:"max-retries" json:"maxRetries" validate:"gte=0,lte=20"`

	// RetryWait is the initial backoff interval.
	RetryWait time.Duration `mapstructure:"retry-wait" json:"retryWait" validate:"gte=0"`

	// RateLimit caps requests per second; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate-limit" json:"rateLimit" validate:"gte=0"`

	// TargetVersion pins the platform schema version migrations run for.
	// Empty asks the platform.
	TargetVersion string `mapstructure:"target-version" json:"targetVersion"`

	// ReleaseKey is the attribute holding release markers.
	ReleaseKey string `mapstructure:"release-key" json:"releaseKey" validate:"required"`

	// DataSourceGroups maps a group name to the data sources it stands for,
	// so --data-sources can name a group.
	DataSourceGroups map[string][]string `mapstructure:"data-source-groups" json:"dataSourceGroups,omitempty"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(), not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:   LogLevelInfo,
		LogFormat:  LogFormatText,
		KibanaURL:  DefaultKibanaURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryWait:  DefaultRetryWait,
		ReleaseKey: DefaultReleaseKey,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report config keys instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" || name == "" {
			return f.Name
		}

		return name
	})

	return v
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	if err := validate.Struct(c); err != nil {
		return describe(err)
	}

	if c.TargetVersion != "" {
		if _, err := semver.NewVersion(c.TargetVersion); err != nil {
			return fmt.Errorf("invalid target-version %q: %w", c.TargetVersion, err)
		}
	}

	return nil
}

// describe turns validator errors into one readable error per key.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))

	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += " " + fe.Param()
		}

		msgs = append(msgs, fmt.Sprintf("invalid %s %v: must satisfy %s", fe.Field(), fe.Value(), rule))
	}

	return errors.New(strings.Join(msgs, "; "))
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// TargetSemver returns the pinned target version, or nil when unset.
func (c *Config) TargetSemver() *semver.Version {
	if c.TargetVersion == "" {
		return nil
	}

	v, err := semver.NewVersion(c.TargetVersion)
	if err != nil {
		return nil
	}

	return v
}

// ExpandDataSources replaces group names with their members. Duplicates
// are dropped; order follows first appearance.
func (c *Config) ExpandDataSources(names []string) []string {
	seen := make(map[string]bool, len(names))

	var out []string

	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[strings.ToLower(name)] {
			return
		}

		seen[strings.ToLower(name)] = true
		out = append(out, name)
	}

	for _, name := range names {
		if members, ok := c.DataSourceGroups[name]; ok {
			for _, m := range members {
				add(m)
			}

			continue
		}

		add(name)
	}

	return out
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Store the resolved config file path so downstream code can locate it.
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("kibana-url", d.KibanaURL)
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("insecure-skip-verify", false)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max-retries", d.MaxRetries)
	v.SetDefault("retry-wait", d.RetryWait)
	v.SetDefault("rate-limit", 0.0)
	v.SetDefault("target-version", "")
	v.SetDefault("release-key", d.ReleaseKey)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("PANELPORT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".panelport")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "panelport"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
