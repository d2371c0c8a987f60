package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/panelport/internal/bundle"
	"github.com/hupe1980/panelport/internal/kibana/kibanatest"
	"github.com/hupe1980/panelport/internal/release"
)

func TestExport_ToStdout(t *testing.T) {
	srv := kibanatest.New(t, "7.10.2", dashboardObjects()...)

	stdout, _, err := executeCommand(remote(srv, "export", "overview")...)
	require.NoError(t, err)

	b, err := bundle.Decode([]byte(stdout))
	require.NoError(t, err)
	require.NotNil(t, b.Dashboard)
	assert.Equal(t, "overview", b.Dashboard.ID)
	assert.Len(t, b.Visualizations, 2)
	assert.Len(t, b.Searches, 1)
	assert.Len(t, b.IndexPatterns, 2)

	_, stamped := release.Of(b.Dashboard, release.DefaultKey)
	assert.True(t, stamped, "dashboard carries a release marker")
}

func TestExport_SplitIndexPatterns(t *testing.T) {
	srv := kibanatest.New(t, "7.10.2", dashboardObjects()...)
	dir := t.TempDir()
	out := filepath.Join(dir, "overview.json")

	_, _, err := executeCommand(remote(srv, "export", "--dashboard", "overview", "-o", out, "--split-index-patterns")...)
	require.NoError(t, err)

	main, err := bundle.ReadFile(afero.NewOsFs(), out)
	require.NoError(t, err)
	assert.Empty(t, main.IndexPatterns)
	assert.Len(t, main.Visualizations, 2)

	for _, id := range []string{"git", "github"} {
		part, err := bundle.ReadFile(afero.NewOsFs(), filepath.Join(dir, id+"-index-pattern.json"))
		require.NoError(t, err)
		assert.True(t, part.IndexPatternOnly())
		assert.Equal(t, id, part.IndexPatterns[0].ID)
	}
}

func TestExport_RefusesToOverwrite(t *testing.T) {
	srv := kibanatest.New(t, "7.10.2", dashboardObjects()...)
	out := filepath.Join(t.TempDir(), "overview.json")
	require.NoError(t, os.WriteFile(out, []byte("keep me"), 0o600))

	_, _, err := executeCommand(remote(srv, "export", "overview", "-o", out)...)
	requireExitCode(t, err, ExitFailure)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestExport_DashboardNotFound(t *testing.T) {
	srv := kibanatest.New(t, "7.10.2")

	_, _, err := executeCommand(remote(srv, "export", "missing")...)
	requireExitCode(t, err, ExitNotFound)
	assert.Contains(t, err.Error(), `exporting dashboard "missing"`)
}
