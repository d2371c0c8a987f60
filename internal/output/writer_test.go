package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bundleJSON = "{\n    \"index_patterns\": []\n}\n"

func TestStdoutWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := NewStdoutWriter(&buf)

	require.NoError(t, w.Write([]byte(bundleJSON)))
	assert.Equal(t, bundleJSON, buf.String())
}

func TestStdoutWriter_NilDefault(t *testing.T) {
	// When nil is passed, it defaults to os.Stdout; just verify it doesn't panic.
	w := NewStdoutWriter(nil)
	assert.NotNil(t, w)
}

func TestFileWriter_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "output", "git.json")

	w := NewFileWriter(path)
	require.NoError(t, w.Write([]byte(bundleJSON)))

	got, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, bundleJSON, string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFileWriter_CreatesParentDirs(t *testing.T) {
	fs := afero.NewMemMapFs()

	w := NewFileWriter("/deep/nested/git.json", WithFs(fs))
	require.NoError(t, w.Write([]byte("test")))

	exists, err := afero.DirExists(fs, "/deep/nested")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFileWriter_CustomPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")

	w := NewFileWriter(path, WithPermissions(0o600))
	require.NoError(t, w.Write([]byte("secret")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileWriter_OverwriteExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/existing.json", []byte("old and longer"), 0o644))

	w := NewFileWriter("/existing.json", WithFs(fs))
	require.NoError(t, w.Write([]byte("new")))

	got, err := afero.ReadFile(fs, "/existing.json")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestFileWriter_Exclusive(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/existing.json", []byte("old"), 0o644))

	err := NewFileWriter("/existing.json", WithFs(fs), WithExclusive()).Write([]byte("new"))
	require.ErrorIs(t, err, ErrExists)

	got, err := afero.ReadFile(fs, "/existing.json")
	require.NoError(t, err)
	assert.Equal(t, "old", string(got), "existing file is left untouched")

	require.NoError(t, NewFileWriter("/fresh.json", WithFs(fs), WithExclusive()).Write([]byte("new")))
}

func TestFileWriter_Path(t *testing.T) {
	w := NewFileWriter("/tmp/test.json")
	assert.Equal(t, "/tmp/test.json", w.Path())
}

func TestFileWriter_InvalidPath(t *testing.T) {
	w := NewFileWriter("/dev/null/impossible/path.json")
	err := w.Write([]byte("data"))
	assert.Error(t, err)
}
