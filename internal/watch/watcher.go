package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunFunc imports the bundle at path. It is called once per file at
// startup and again after every debounced change.
type RunFunc func(ctx context.Context, path string) (*RunResult, error)

// RunResult summarizes one import run.
type RunResult struct {
	Written int
	Skipped int
	Failed  int
}

// Options configures the watch behaviour.
type Options struct {
	// Files are the bundle files to watch.
	Files []string

	// Debounce is the quiet period before triggering an import.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer

	// Now stamps status lines. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 500 * time.Millisecond,
		Logger:   slog.Default(),
		Out:      os.Stderr,
		Now:      time.Now,
	}
}

// Run starts the file watcher and blocks until the context is cancelled
// or a SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if len(opts.Files) == 0 {
		return fmt.Errorf("no bundle files to watch")
	}

	files, err := resolve(opts.Files)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range parentDirs(files) {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching directory %q: %w", dir, err)
		}
	}

	// Trap SIGINT / SIGTERM for graceful shutdown.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", strings.Join(files, ", "), opts.Debounce)

	r := &runner{opts: opts, runFn: runFn}

	for _, f := range files {
		r.run(sigCtx, f, "(initial)")
	}

	debouncers := make(map[string]*Debouncer, len(files))

	for _, f := range files {
		path := f
		debouncers[path] = NewDebouncer(path, opts.Debounce, opts.Logger, func(ops fsnotify.Op) {
			r.run(sigCtx, path, describe(ops))
		})
	}

	defer func() {
		for _, d := range debouncers {
			d.Stop()
		}
	}()

	for {
		select {
		case <-sigCtx.Done():
			_, _ = fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event) {
				continue
			}

			if d, watched := debouncers[filepath.Clean(event.Name)]; watched {
				d.Trigger(event.Op)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// runner serializes import runs.
type runner struct {
	mu    sync.Mutex
	opts  Options
	runFn RunFunc
}

// run executes a single import and prints the status line.
func (r *runner) run(ctx context.Context, path, trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	now := r.opts.Now().Format("15:04:05")
	name := filepath.Base(path)

	result, err := r.runFn(ctx, path)
	if err != nil {
		_, _ = fmt.Fprintf(r.opts.Out, "[%s] %s %s → ERROR: %v\n", now, name, trigger, err)
		r.opts.Logger.Debug("watch run failed", slog.String("file", path), slog.String("error", err.Error()))

		return
	}

	status := "OK"
	if result.Failed > 0 {
		status = "PARTIAL"
	}

	_, _ = fmt.Fprintf(r.opts.Out, "[%s] %s %s → %s (%d written, %d skipped, %d failed)\n",
		now, name, trigger, status, result.Written, result.Skipped, result.Failed)
}

// resolve makes files absolute and checks that they exist.
func resolve(files []string) ([]string, error) {
	out := make([]string, 0, len(files))
	seen := make(map[string]bool, len(files))

	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", f, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("watching bundle file: %w", err)
		}

		if info.IsDir() {
			return nil, fmt.Errorf("watching bundle file: %s is a directory", f)
		}

		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}

	return out, nil
}

// parentDirs returns the sorted unique directories holding files.
func parentDirs(files []string) []string {
	seen := make(map[string]bool, len(files))

	var dirs []string

	for _, f := range files {
		dir := filepath.Dir(f)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	sort.Strings(dirs)

	return dirs
}

// isRelevant filters out events that cannot change a bundle's content.
func isRelevant(event fsnotify.Event) bool {
	if event.Op == 0 {
		return false
	}

	// Only care about write, create, rename.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Base(event.Name)

	// Ignore editor temporary files and hidden files.
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#") {
		return false
	}

	return true
}
