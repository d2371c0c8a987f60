package plan

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/panelport/internal/migrate"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func dashboard(panels string) *savedobject.Object {
	return savedobject.New(savedobject.TypeDashboard, "overview", map[string]interface{}{
		savedobject.AttrTitle:  "Overview",
		savedobject.AttrPanels: panels,
	})
}

func samplePlan() *migrate.Plan {
	stored := dashboard(`[{"id":"git_commits","size_y":3}]`)
	desired := dashboard(`[{"id":"git_commits","gridData":{"h":3}}]`)
	pattern := savedobject.New(savedobject.TypeIndexPattern, "git", map[string]interface{}{savedobject.AttrTitle: "git"})

	return &migrate.Plan{
		Target: semver.MustParse("6.8.0"),
		Changes: []*migrate.Change{
			{Key: pattern.Key(), Title: "git", Action: migrate.ActionCreate, Desired: pattern},
			{Key: savedobject.Key{Type: savedobject.TypeVisualization, ID: "github_commits"}, Action: migrate.ActionSkipFiltered, Reason: "data source not selected"},
			{Key: savedobject.Key{Type: savedobject.TypeSearch, ID: "broken"}, Action: migrate.ActionFail, Reason: "boom"},
			{Key: stored.Key(), Title: "Overview", Action: migrate.ActionUpdate, Steps: []string{"panel-heights"}, Desired: desired, Current: stored},
		},
	}
}

// ---------------------------------------------------------------------------
// Document
// ---------------------------------------------------------------------------

func TestDocument_ExpandsEmbeddedJSON(t *testing.T) {
	o := dashboard(`[{"id":"a","size_y":2}]`)
	o.Attributes[savedobject.AttrMeta] = map[string]interface{}{
		savedobject.AttrSearchSource: `{"index":"git"}`,
	}
	o.References = []savedobject.Reference{{Name: "panel_0", Type: savedobject.TypeVisualization, ID: "a"}}

	doc, err := Document(o)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(doc), &decoded))

	attrs := decoded["attributes"].(map[string]interface{})
	panels, ok := attrs[savedobject.AttrPanels].([]interface{})
	require.True(t, ok, "panelsJSON should be expanded")
	assert.Len(t, panels, 1)

	meta := attrs[savedobject.AttrMeta].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"index": "git"}, meta[savedobject.AttrSearchSource])
	assert.Len(t, decoded["references"], 1)

	// The source object is untouched.
	assert.IsType(t, "", o.Attributes[savedobject.AttrPanels])
}

func TestDocument_KeepsInvalidEmbeddedJSON(t *testing.T) {
	o := dashboard(`not json`)

	doc, err := Document(o)
	require.NoError(t, err)
	assert.Contains(t, doc, `"panelsJSON": "not json"`)
}

func TestDocument_Nil(t *testing.T) {
	doc, err := Document(nil)
	require.NoError(t, err)
	assert.Empty(t, doc)
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func TestBuild_Summary(t *testing.T) {
	r, err := Build("bundle.json", samplePlan(), BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, "bundle.json", r.Source)
	assert.Equal(t, "6.8.0", r.Target)
	require.Len(t, r.Entries, 4)
	assert.Equal(t, Summary{Create: 1, Update: 1, Skip: 1, Fail: 1}, r.Summary)
	assert.True(t, r.HasFailures())

	assert.Equal(t, "update", r.Entries[3].Action)
	assert.Equal(t, []string{"panel-heights"}, r.Entries[3].Migrations)
	assert.Empty(t, r.Entries[3].Diff, "diffs are only attached on request")
}

func TestBuild_WithDiff(t *testing.T) {
	r, err := Build("", samplePlan(), BuildOptions{Diff: true})
	require.NoError(t, err)

	update := r.Entries[3]
	assert.Contains(t, update.Diff, "--- stored/dashboard/overview")
	assert.Contains(t, update.Diff, "+++ bundle/dashboard/overview")
	assert.Contains(t, update.Diff, `-        "size_y": 3`)
	assert.Contains(t, update.Diff, `+        "gridData": {`)

	create := r.Entries[0]
	assert.Contains(t, create.Diff, `+  "id": "git",`)
}

func TestBuild_UnchangedUpdate(t *testing.T) {
	stored := dashboard(`[{"id":"a"}]`)
	p := &migrate.Plan{Changes: []*migrate.Change{
		{Key: stored.Key(), Action: migrate.ActionUpdate, Desired: stored.Clone(), Current: stored},
	}}

	r, err := Build("", p, BuildOptions{Diff: true})
	require.NoError(t, err)

	assert.True(t, r.Entries[0].Unchanged)
	assert.Empty(t, r.Entries[0].Diff)
	assert.Equal(t, Summary{Unchanged: 1}, r.Summary)
	assert.Empty(t, r.Target)
}

// ---------------------------------------------------------------------------
// Formatting
// ---------------------------------------------------------------------------

func TestFormatPlan(t *testing.T) {
	r, err := Build("bundle.json", samplePlan(), BuildOptions{Diff: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	FormatPlan(&buf, r, false)
	out := buf.String()

	assert.Contains(t, out, "Plan: bundle.json")
	assert.Contains(t, out, "Target version: 6.8.0")
	assert.Contains(t, out, "+ create")
	assert.Contains(t, out, "~ update")
	assert.Contains(t, out, "- skip-filtered")
	assert.Contains(t, out, "! fail")
	assert.Contains(t, out, "dashboard/overview (Overview)")
	assert.Contains(t, out, "migrations: panel-heights")
	assert.Contains(t, out, "reason: boom")
	assert.Contains(t, out, "Summary: 1 to create, 1 to update, 0 unchanged, 1 skipped, 1 failing")
	assert.NotContains(t, out, "\033[")
}

func TestFormatPlan_Color(t *testing.T) {
	r, err := Build("", samplePlan(), BuildOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	FormatPlan(&buf, r, true)
	assert.Contains(t, buf.String(), "\033[")
}

func TestFormatPlanJSON(t *testing.T) {
	r, err := Build("", samplePlan(), BuildOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, FormatPlanJSON(&buf, r))

	var decoded Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.Summary, decoded.Summary)
	assert.Len(t, decoded.Entries, 4)
}

func TestFormatPlanYAML(t *testing.T) {
	r, err := Build("", samplePlan(), BuildOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, FormatPlanYAML(&buf, r))
	assert.Contains(t, buf.String(), "targetVersion: 6.8.0")
	assert.Contains(t, buf.String(), "action: skip-filtered")
}

func TestFormatPlanCompact(t *testing.T) {
	r, err := Build("", samplePlan(), BuildOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	FormatPlanCompact(&buf, r)
	assert.Equal(t, "Plan: 1 to create, 1 to update, 0 unchanged, 1 skipped, 1 failing\n", buf.String())
}
