package watch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debouncer collects the file events of one bundle file and fires once the
// file has been quiet for the interval. The callback receives every
// operation seen since the last firing.
type Debouncer struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	fire     func(ops fsnotify.Op)

	mu      sync.Mutex
	timer   *time.Timer
	pending fsnotify.Op
}

// NewDebouncer returns a debouncer for path.
func NewDebouncer(path string, interval time.Duration, logger *slog.Logger, fire func(ops fsnotify.Op)) *Debouncer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Debouncer{
		path:     path,
		interval: interval,
		logger:   logger,
		fire:     fire,
	}
}

// Trigger records op and restarts the quiet period.
func (d *Debouncer) Trigger(op fsnotify.Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending |= op

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	ops := d.pending
	d.pending = 0
	d.timer = nil
	d.mu.Unlock()

	if ops == 0 {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("bundle run panicked", slog.String("file", d.path), slog.Any("error", r))
		}
	}()

	d.fire(ops)
}

// Stop drops pending events.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	d.pending = 0
}

// describe names what happened to a file for the status line. Editors that
// save through a temp file produce Create or Rename instead of Write.
func describe(ops fsnotify.Op) string {
	switch {
	case ops.Has(fsnotify.Write):
		return "changed"
	case ops.Has(fsnotify.Create), ops.Has(fsnotify.Rename):
		return "replaced"
	default:
		return "changed"
	}
}
