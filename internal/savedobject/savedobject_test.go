package savedobject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSearchSource(o *Object, src string) *Object {
	o.Attributes[AttrMeta] = map[string]interface{}{AttrSearchSource: src}
	return o
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"dashboard", "visualization", "search", "index-pattern"} {
		typ, err := ParseType(s)
		require.NoError(t, err)
		assert.Equal(t, Type(s), typ)
	}

	_, err := ParseType("config")
	assert.ErrorContains(t, err, "unknown saved object type")
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "index-pattern/git", Key{Type: TypeIndexPattern, ID: "git"}.String())
}

func TestClone_Independent(t *testing.T) {
	o := New(TypeVisualization, "v1", map[string]interface{}{
		"title": "git_commits",
		"nested": map[string]interface{}{"k": "v"},
	})
	o.References = []Reference{{Name: "search_0", Type: TypeSearch, ID: "s1"}}

	c := o.Clone()
	c.Attributes["nested"].(map[string]interface{})["k"] = "changed"
	c.References[0].ID = "other"

	assert.Equal(t, "v", o.Attributes["nested"].(map[string]interface{})["k"])
	assert.Equal(t, "s1", o.References[0].ID)
	assert.Nil(t, (*Object)(nil).Clone())
}

func TestIndexPatternID(t *testing.T) {
	tests := []struct {
		name string
		src  string
		refs []Reference
		want string
	}{
		{"top-level index", `{"index":"ip-1","filter":[{"meta":{"index":"ip-2"}}]}`, nil, "ip-1"},
		{"filter fallback", `{"filter":[{"meta":{"index":"ip-2"}},{"meta":{"index":"ip-3"}}]}`, nil, "ip-2"},
		{"empty filter", `{"filter":[]}`, nil, ""},
		{"no index at all", `{"query":{"query":"*"}}`, nil, ""},
		{
			"index ref name",
			`{"indexRefName":"kibanaSavedObjectMeta.searchSourceJSON.index"}`,
			[]Reference{{Name: "kibanaSavedObjectMeta.searchSourceJSON.index", Type: TypeIndexPattern, ID: "ip-ref"}},
			"ip-ref",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := withSearchSource(New(TypeSearch, "s", nil), tt.src)
			o.References = tt.refs

			got, err := IndexPatternID(o)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndexPatternID_NoMeta(t *testing.T) {
	got, err := IndexPatternID(New(TypeVisualization, "v", nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndexPatternID_Malformed(t *testing.T) {
	o := withSearchSource(New(TypeSearch, "s", nil), `{not json`)
	_, err := IndexPatternID(o)
	assert.ErrorContains(t, err, "search/s")
}

func TestSavedSearchID(t *testing.T) {
	o := New(TypeVisualization, "v", map[string]interface{}{AttrSavedSearchID: "s1"})
	assert.Equal(t, "s1", SavedSearchID(o))

	o = New(TypeVisualization, "v", map[string]interface{}{AttrSavedSearchRefName: "search_0"})
	o.References = []Reference{{Name: "search_0", Type: TypeSearch, ID: "s2"}}
	assert.Equal(t, "s2", SavedSearchID(o))

	assert.Empty(t, SavedSearchID(New(TypeVisualization, "v", nil)))
}

func TestSetSearchSource_RoundTrip(t *testing.T) {
	o := New(TypeDashboard, "d", nil)
	require.NoError(t, o.SetSearchSource(map[string]interface{}{"index": "a&b"}))

	raw := o.Attributes[AttrMeta].(map[string]interface{})[AttrSearchSource]
	assert.Equal(t, `{"index":"a&b"}`, raw, "HTML characters stay unescaped")

	src, ok, err := o.SearchSource()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a&b", src["index"])
}

func TestPanelRefs(t *testing.T) {
	o := New(TypeDashboard, "d", map[string]interface{}{
		AttrPanels: `[
			{"id":"git_commits","type":"visualization","title":"Git commits"},
			{"panelRefName":"panel_1","embeddableConfig":{"title":"Issues"}},
			"garbage"
		]`,
	})
	o.References = []Reference{{Name: "panel_1", Type: TypeSearch, ID: "github_issues"}}

	refs, ok, err := o.PanelRefs()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, refs, 2)

	assert.Equal(t, PanelRef{ID: "git_commits", Type: TypeVisualization, Title: "Git commits"}, refs[0])
	assert.Equal(t, PanelRef{ID: "github_issues", Type: TypeSearch, Title: "Issues"}, refs[1])
}

func TestPanels_Absent(t *testing.T) {
	_, ok, err := New(TypeDashboard, "d", nil).Panels()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPanels_NotArray(t *testing.T) {
	_, _, err := New(TypeDashboard, "d", map[string]interface{}{AttrPanels: `{}`}).Panels()
	assert.ErrorContains(t, err, "not an array")
}

func TestSetPanels_PreservesNumbers(t *testing.T) {
	o := New(TypeDashboard, "d", map[string]interface{}{
		AttrPanels: `[{"id":"a","size_y":1,"col":12345678901234}]`,
	})

	panels, _, err := o.Panels()
	require.NoError(t, err)
	require.NoError(t, o.SetPanels(panels))

	assert.Equal(t, `[{"col":12345678901234,"id":"a","size_y":1}]`, o.Attributes[AttrPanels])
}

func TestPage_HasMore(t *testing.T) {
	p := &Page{Objects: []*Object{{}}, Page: 1, PerPage: 1, Total: 2}
	assert.True(t, p.HasMore())

	p.Page = 2
	assert.False(t, p.HasMore())

	assert.False(t, (&Page{Page: 1, PerPage: 1, Total: 5}).HasMore(), "empty page ends the listing")
}

func TestUpdated(t *testing.T) {
	o := &Object{UpdatedAt: "2018-09-07T18:40:33.247Z"}
	ts, ok := o.Updated()
	require.True(t, ok)
	assert.Equal(t, 2018, ts.Year())

	_, ok = (&Object{UpdatedAt: "yesterday"}).Updated()
	assert.False(t, ok)
}

func TestDecodeJSON(t *testing.T) {
	var v map[string]interface{}

	require.NoError(t, DecodeJSON([]byte("{\"size_y\": 3}\n  "), &v))
	assert.Equal(t, json.Number("3"), v["size_y"])

	err := DecodeJSON([]byte(`{"size_y": 3} junk`), &v)
	require.ErrorIs(t, err, ErrTrailingData)

	err = DecodeJSON([]byte(`[] []`), &v)
	require.Error(t, err)
}
