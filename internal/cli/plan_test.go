package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/panelport/internal/kibana/kibanatest"
	"github.com/hupe1980/panelport/internal/plan"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// ---------------------------------------------------------------------------
// plan
// ---------------------------------------------------------------------------

func TestPlan_WritesNothing(t *testing.T) {
	srv := kibanatest.New(t, "7.10.2")
	file := writeBundleFile(t, 1)

	stdout, _, err := executeCommand(remote(srv, "plan", file, "--data-sources", "github")...)
	require.NoError(t, err)

	assert.Empty(t, srv.Writes())
	assert.Contains(t, stdout, "Plan: "+file)
	assert.Contains(t, stdout, "Target version: 7.10.2")
	assert.Contains(t, stdout, "+ create")
	assert.Contains(t, stdout, "- skip-filtered")
	assert.Contains(t, stdout, "Summary: 3 to create, 0 to update, 0 unchanged, 3 skipped, 0 failing")
}

func TestPlan_DiffAgainstStored(t *testing.T) {
	stored := titled(savedobject.TypeIndexPattern, "git")
	stored.Attributes[savedobject.AttrTitle] = "git-old"

	srv := kibanatest.New(t, "7.10.2", stored)
	file := writeBundleFile(t, 1)

	stdout, _, err := executeCommand(remote(srv, "plan", file, "--diff", "--data-sources", "git")...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "~ update")
	assert.Contains(t, stdout, "--- stored/index-pattern/git")
	assert.Contains(t, stdout, `-    "title": "git-old"`)
	assert.Contains(t, stdout, `+    "title": "git"`)
}

func TestPlan_JSON(t *testing.T) {
	srv := kibanatest.New(t, "7.10.2")
	file := writeBundleFile(t, 1)

	stdout, _, err := executeCommand(remote(srv, "plan", file, "--format", "json")...)
	require.NoError(t, err)

	var result plan.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, plan.Summary{Create: 6}, result.Summary)
	assert.Equal(t, "7.10.2", result.Target)
}

func TestPlan_UnsupportedFormat(t *testing.T) {
	_, _, err := executeCommand("plan", "bundle.json", "--format", "xml")
	requireExitCode(t, err, ExitUsage)
}

// ---------------------------------------------------------------------------
// validate
// ---------------------------------------------------------------------------

func TestValidate_Passes(t *testing.T) {
	file := writeBundleFile(t, 1)

	stdout, _, err := executeCommand("validate", file)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Validation passed.")
}

func TestValidate_MissingPanelTarget(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(p, []byte(`{
		"dashboard": {"id": "d", "value": {"title": "D", "version": 1, "panelsJSON": "[{\"id\":\"ghost\",\"type\":\"visualization\"}]"}},
		"visualizations": [],
		"searches": [],
		"index_patterns": []
	}`), 0o600))

	_, stderr, err := executeCommand("validate", p)
	requireExitCode(t, err, ExitFailure)
	assert.Contains(t, err.Error(), "validation failed with 1 error(s)")
	assert.Contains(t, stderr, "ghost")
}

func TestValidate_StrictFailsOnWarnings(t *testing.T) {
	file := writeBundleFile(t, nil)

	_, _, err := executeCommand("validate", file)
	require.NoError(t, err, "a missing marker is only a warning")

	_, stderr, err := executeCommand("validate", "--strict", file)
	requireExitCode(t, err, ExitFailure)
	assert.Contains(t, stderr, "no release marker")
}
