package output

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/panelport/internal/savedobject"
)

func listing() []*savedobject.Object {
	d := savedobject.New(savedobject.TypeDashboard, "git", map[string]interface{}{"title": "Git & GitHub"})
	d.UpdatedAt = "2020-03-23T10:00:00.000Z"

	return []*savedobject.Object{
		d,
		savedobject.New(savedobject.TypeIndexPattern, "ip-1", map[string]interface{}{"title": "git"}),
	}
}

func TestRegistry_RegisterAndRenderer(t *testing.T) {
	r := NewRegistry()
	r.Register("custom", func(w io.Writer, _ []*savedobject.Object) error {
		_, err := w.Write([]byte("custom"))
		return err
	})

	render, err := r.Renderer("custom")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render(&buf, nil))
	assert.Equal(t, "custom", buf.String())
}

func TestRegistry_UnknownFormat(t *testing.T) {
	r := NewRegistry()
	_, err := r.Renderer("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
	assert.Contains(t, err.Error(), "none")
}

func TestRegistry_Formats(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"ids", "json", "table", "yaml"}, r.Formats())
	assert.Equal(t, "ids, json, table, yaml", r.AvailableFormats())
}

func TestDefaultRegistry_JSON(t *testing.T) {
	render, err := DefaultRegistry().Renderer("json")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render(&buf, listing()))
	assert.Contains(t, buf.String(), `"title": "Git & GitHub"`)
	assert.Contains(t, buf.String(), `"updated_at": "2020-03-23T10:00:00.000Z"`)
}

func TestDefaultRegistry_YAML(t *testing.T) {
	render, err := DefaultRegistry().Renderer("yaml")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render(&buf, listing()))
	assert.Contains(t, buf.String(), "- type: dashboard\n  id: git\n")
	assert.Contains(t, buf.String(), "- type: index-pattern\n  id: ip-1\n  title: git\n")
}

func TestDefaultRegistry_IDs(t *testing.T) {
	render, err := DefaultRegistry().Renderer("ids")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render(&buf, listing()))
	assert.Equal(t, "git\nip-1\n", buf.String())
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer

	now := time.Date(2020, 3, 25, 10, 0, 0, 0, time.UTC)
	require.NoError(t, renderTable(&buf, listing(), now))

	out := buf.String()
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "Git & GitHub")
	assert.Contains(t, out, "2 days ago")
	assert.Contains(t, out, "index-pattern")
}

func TestSerialize_UnknownFormat(t *testing.T) {
	_, err := Serialize(map[string]string{}, "toml")
	assert.ErrorContains(t, err, "unsupported serialization format")
}

func TestSerializeJSON_DefaultIndent(t *testing.T) {
	data, err := SerializeJSON(map[string]int{"b": 1, "a": 2}, "")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 2,\n  \"b\": 1\n}\n", string(data))
}
