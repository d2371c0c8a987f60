package watch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Debouncer
// ---------------------------------------------------------------------------

func TestDebouncer_SingleEvent(t *testing.T) {
	var callCount atomic.Int32
	var lastOps atomic.Uint32

	d := NewDebouncer("a.json", 50*time.Millisecond, nil, func(ops fsnotify.Op) {
		callCount.Add(1)
		lastOps.Store(uint32(ops))
	})
	defer d.Stop()

	d.Trigger(fsnotify.Write)

	// Wait for debounce to fire.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, uint32(fsnotify.Write), lastOps.Load())
}

func TestDebouncer_MultipleEventsCoalesced(t *testing.T) {
	var callCount atomic.Int32

	d := NewDebouncer("bundle.json", 100*time.Millisecond, nil, func(_ fsnotify.Op) {
		callCount.Add(1)
	})
	defer d.Stop()

	// Fire 10 rapid events; they coalesce into 1.
	for i := 0; i < 10; i++ {
		d.Trigger(fsnotify.Write)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), callCount.Load())
}

func TestDebouncer_MergesOps(t *testing.T) {
	var lastOps atomic.Uint32

	d := NewDebouncer("bundle.json", 50*time.Millisecond, nil, func(ops fsnotify.Op) {
		lastOps.Store(uint32(ops))
	})
	defer d.Stop()

	d.Trigger(fsnotify.Create)
	time.Sleep(10 * time.Millisecond)
	d.Trigger(fsnotify.Write)

	time.Sleep(150 * time.Millisecond)

	ops := fsnotify.Op(lastOps.Load())
	assert.True(t, ops.Has(fsnotify.Create))
	assert.True(t, ops.Has(fsnotify.Write))
}

func TestDebouncer_Stop(t *testing.T) {
	var callCount atomic.Int32

	d := NewDebouncer("a.json", 50*time.Millisecond, nil, func(_ fsnotify.Op) {
		callCount.Add(1)
	})

	d.Trigger(fsnotify.Write)
	d.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), callCount.Load())
}

func TestDebouncer_RecoversPanic(t *testing.T) {
	var callCount atomic.Int32

	d := NewDebouncer("a.json", 20*time.Millisecond, nil, func(_ fsnotify.Op) {
		callCount.Add(1)
		panic("boom")
	})
	defer d.Stop()

	d.Trigger(fsnotify.Write)
	time.Sleep(80 * time.Millisecond)
	d.Trigger(fsnotify.Write)
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, int32(2), callCount.Load())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "changed", describe(fsnotify.Write))
	assert.Equal(t, "changed", describe(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, "replaced", describe(fsnotify.Create))
	assert.Equal(t, "replaced", describe(fsnotify.Rename))
}

// ---------------------------------------------------------------------------
// isRelevant
// ---------------------------------------------------------------------------

func TestIsRelevant(t *testing.T) {
	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"json write", "bundle.json", fsnotify.Write, true},
		{"create event", "bundle.json", fsnotify.Create, true},
		{"rename event", "bundle.json", fsnotify.Rename, true},
		{"remove event", "bundle.json", fsnotify.Remove, false},
		{"hidden file", ".bundle.json", fsnotify.Write, false},
		{"swap file", "bundle.json.swp", fsnotify.Write, false},
		{"backup tilde", "bundle.json~", fsnotify.Write, false},
		{"emacs hash", "#bundle.json#", fsnotify.Write, false},
		{"zero op", "bundle.json", 0, false},
		{"chmod only", "bundle.json", fsnotify.Chmod, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := fsnotify.Event{Name: tt.path, Op: tt.op}
			assert.Equal(t, tt.want, isRelevant(event))
		})
	}
}

// ---------------------------------------------------------------------------
// resolve / parentDirs
// ---------------------------------------------------------------------------

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	f := writeBundle(t, dir, "a.json")

	files, err := resolve([]string{f, f})
	require.NoError(t, err)
	assert.Equal(t, []string{f}, files)

	_, err = resolve([]string{filepath.Join(dir, "missing.json")})
	assert.ErrorContains(t, err, "watching bundle file")

	_, err = resolve([]string{dir})
	assert.ErrorContains(t, err, "is a directory")
}

func TestParentDirs(t *testing.T) {
	dirs := parentDirs([]string{"/b/x.json", "/a/y.json", "/b/z.json"})
	assert.Equal(t, []string{"/a", "/b"}, dirs)
}

// ---------------------------------------------------------------------------
// Run (integration)
// ---------------------------------------------------------------------------

func writeBundle(t *testing.T, dir, name string) string {
	t.Helper()

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(`{"objects":[]}`), 0o644))

	return p
}

func testOptions(files ...string) Options {
	opts := DefaultOptions()
	opts.Files = files
	opts.Debounce = 50 * time.Millisecond
	opts.Out = io.Discard

	return opts
}

func TestRun_GracefulShutdown(t *testing.T) {
	f := writeBundle(t, t.TempDir(), "bundle.json")

	ctx, cancel := context.WithCancel(context.Background())

	var runCount atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, testOptions(f), func(_ context.Context, _ string) (*RunResult, error) {
			runCount.Add(1)
			return &RunResult{Written: 1}, nil
		})
	}()

	// Let initial run complete.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), runCount.Load())

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not shut down in time")
	}
}

func TestRun_FileChangeTriggersImport(t *testing.T) {
	dir := t.TempDir()
	f := writeBundle(t, dir, "bundle.json")
	other := writeBundle(t, dir, "unrelated.json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runCount atomic.Int32

	var lastPath atomic.Value

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, testOptions(f), func(_ context.Context, path string) (*RunResult, error) {
			runCount.Add(1)
			lastPath.Store(path)

			return &RunResult{Written: 1}, nil
		})
	}()

	time.Sleep(200 * time.Millisecond)
	initialRuns := runCount.Load()

	// A sibling file in the same directory does not trigger.
	require.NoError(t, os.WriteFile(other, []byte(`{}`), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, initialRuns, runCount.Load())

	require.NoError(t, os.WriteFile(f, []byte(`{"objects":[{}]}`), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Greater(t, runCount.Load(), initialRuns, "file change should trigger an import")
	assert.Equal(t, f, lastPath.Load())

	cancel()
	<-done
}

func TestRun_StatusLines(t *testing.T) {
	f := writeBundle(t, t.TempDir(), "bundle.json")

	ctx, cancel := context.WithCancel(context.Background())

	var out syncBuffer

	opts := testOptions(f)
	opts.Out = &out
	opts.Now = func() time.Time { return time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC) }

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context, _ string) (*RunResult, error) {
			return &RunResult{Written: 3, Skipped: 2, Failed: 1}, nil
		})
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	assert.Contains(t, out.String(), "[12:30:00] bundle.json (initial) → PARTIAL (3 written, 2 skipped, 1 failed)")
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 500*time.Millisecond, opts.Debounce)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Out)
	assert.NotNil(t, opts.Now)
}

// ---------------------------------------------------------------------------
// Run error paths
// ---------------------------------------------------------------------------

func TestRun_MissingFile(t *testing.T) {
	opts := testOptions("/nonexistent/panelport/bundle-12345.json")

	err := Run(context.Background(), opts, func(_ context.Context, _ string) (*RunResult, error) {
		return &RunResult{}, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watching bundle file")
}

func TestRun_NoFiles(t *testing.T) {
	err := Run(context.Background(), testOptions(), func(_ context.Context, _ string) (*RunResult, error) {
		return &RunResult{}, nil
	})
	assert.ErrorContains(t, err, "no bundle files")
}

func TestRun_RunFuncError(t *testing.T) {
	f := writeBundle(t, t.TempDir(), "bundle.json")

	ctx, cancel := context.WithCancel(context.Background())

	var out syncBuffer

	opts := testOptions(f)
	opts.Out = &out

	var callCount atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context, _ string) (*RunResult, error) {
			callCount.Add(1)
			return nil, fmt.Errorf("kibana unreachable")
		})
	}()

	// The initial run fails but the watcher keeps going.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), callCount.Load())

	cancel()
	assert.NoError(t, <-done)
	assert.Contains(t, out.String(), "ERROR: kibana unreachable")
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
