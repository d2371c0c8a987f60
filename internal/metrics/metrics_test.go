package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/panelport/internal/savedobject"
)

func TestObserveRequest(t *testing.T) {
	r := New()

	r.ObserveRequest("GET", "saved_objects", 200, 10*time.Millisecond)
	r.ObserveRequest("GET", "saved_objects", 200, 10*time.Millisecond)
	r.ObserveRequest("GET", "saved_objects", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Requests.WithLabelValues("GET", "saved_objects", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Requests.WithLabelValues("GET", "saved_objects", "error")))
}

func TestObserveObject(t *testing.T) {
	r := New()

	r.ObserveObject("import", savedobject.TypeDashboard, "created")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Objects.WithLabelValues("import", "dashboard", "created")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Objects.WithLabelValues("import", "dashboard", "failed")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveObject("export", savedobject.TypeIndexPattern, "exported")

	path := filepath.Join(t.TempDir(), "panelport.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `panelport_objects_total{operation="export",outcome="exported",type="index-pattern"} 1`)
}

func TestWriteTextfile_BadPath(t *testing.T) {
	err := New().WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.ErrorContains(t, err, "writing metrics")
}
