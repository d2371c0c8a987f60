package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Argument validation
// ---------------------------------------------------------------------------

func TestImport_NoArgs(t *testing.T) {
	_, _, err := executeCommand("import")
	require.Error(t, err)
}

func TestPlan_NoArgs(t *testing.T) {
	_, _, err := executeCommand("plan")
	require.Error(t, err)
}

func TestValidate_NoArgs(t *testing.T) {
	_, _, err := executeCommand("validate")
	require.Error(t, err)
}

func TestWatch_NoArgs(t *testing.T) {
	_, _, err := executeCommand("watch")
	require.Error(t, err)
}

func TestDelete_WrongArgCount(t *testing.T) {
	_, _, err := executeCommand("delete", "dashboard")
	require.Error(t, err)
}

func TestExport_RequiresDashboard(t *testing.T) {
	_, _, err := executeCommand("export")
	requireExitCode(t, err, ExitUsage)
	assert.Contains(t, err.Error(), "dashboard id is required")
}

func TestExport_SplitRequiresOutput(t *testing.T) {
	_, _, err := executeCommand("export", "overview", "--split-index-patterns")
	requireExitCode(t, err, ExitUsage)
}

func TestImport_Help(t *testing.T) {
	stdout, _, err := executeCommand("import", "--help")
	require.NoError(t, err)

	for _, flag := range []string{"--data-sources", "--include-studies", "--strict", "--exclude-type", "--exclude-id", "--metrics-file"} {
		assert.Contains(t, stdout, flag)
	}

	assert.NotContains(t, stdout, "--add-vis-studies", "alias is hidden")
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func TestCompletion_Shells(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := executeCommand("completion", shell)
			require.NoError(t, err)
			assert.NotEmpty(t, stdout)
		})
	}
}

func TestCompletion_InvalidShell(t *testing.T) {
	_, _, err := executeCommand("completion", "tcsh")
	require.Error(t, err)
}

func TestCompletion_NoArgs(t *testing.T) {
	_, _, err := executeCommand("completion")
	require.Error(t, err)
}

func TestComplete_DeleteTypes(t *testing.T) {
	stdout, _, err := executeCommand("__complete", "delete", "")
	require.NoError(t, err)

	for _, typ := range []string{"dashboard", "visualization", "search", "index-pattern"} {
		assert.Contains(t, stdout, typ+"\n")
	}
}

func TestComplete_DeleteTypePrefix(t *testing.T) {
	stdout, _, err := executeCommand("__complete", "delete", "vis")
	require.NoError(t, err)
	assert.Contains(t, stdout, "visualization\n")
	assert.NotContains(t, stdout, "dashboard")
}

func TestComplete_ExcludeTypeList(t *testing.T) {
	stdout, _, err := executeCommand("__complete", "import", "--exclude-type", "search,d")
	require.NoError(t, err)
	assert.Contains(t, stdout, "search,dashboard\n")
}

func TestComplete_PlanFormat(t *testing.T) {
	stdout, _, err := executeCommand("__complete", "plan", "--format", "")
	require.NoError(t, err)
	assert.Contains(t, stdout, "compact\n")
}

func TestCompleteTypeList(t *testing.T) {
	names, _ := completeTypeList(nil, nil, "index-pattern,s")
	assert.Equal(t, []string{"index-pattern,search"}, names)
}
