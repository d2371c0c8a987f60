// Package migrate moves dashboard bundles between a saved-object store and
// bundle files: export resolves and stamps a dashboard's object graph,
// import filters, migrates and gates a bundle before writing it back.
package migrate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"

	"github.com/hupe1980/panelport/internal/compat"
	"github.com/hupe1980/panelport/internal/filter"
	"github.com/hupe1980/panelport/internal/kibana"
	"github.com/hupe1980/panelport/internal/release"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// Operation labels reported to the ObjectObserver.
const (
	OperationExport = "export"
	OperationImport = "import"
)

// ObjectObserver receives one call per processed object.
type ObjectObserver interface {
	ObserveObject(operation string, t savedobject.Type, outcome string)
}

type options struct {
	logger      *slog.Logger
	observer    ObjectObserver
	releaseKey  string
	chain       *compat.Chain
	target      *semver.Version
	filters     []filter.Filter
	concurrency int
	fs          afero.Fs
	now         func() time.Time
}

func defaultOptions() options {
	return options{
		logger:      slog.Default(),
		releaseKey:  release.DefaultKey,
		chain:       compat.DefaultChain(),
		concurrency: 1,
		fs:          afero.NewOsFs(),
		now:         time.Now,
	}
}

// Option configures an Importer or Exporter.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver reports per-object outcomes, typically to a metrics.Recorder.
func WithObserver(observer ObjectObserver) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithReleaseKey overrides the attribute holding the release marker.
func WithReleaseKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.releaseKey = key
		}
	}
}

// WithChain replaces the default compatibility chain.
func WithChain(chain *compat.Chain) Option {
	return func(o *options) {
		o.chain = chain
	}
}

// WithTargetVersion pins the schema version of the target platform. Without
// it the importer asks the store, if the store can tell.
func WithTargetVersion(v *semver.Version) Option {
	return func(o *options) {
		o.target = v
	}
}

// WithFilters adds filters that run after the data-source and study
// filters, e.g. type or id exclusions.
func WithFilters(filters ...filter.Filter) Option {
	return func(o *options) {
		o.filters = append(o.filters, filters...)
	}
}

// WithConcurrency bounds the parallel prefetch of the resolver.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithFs sets the filesystem bundle files are written to.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithClock sets the time source used for release markers.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func (o *options) observe(operation string, t savedobject.Type, outcome string) {
	if o.observer != nil {
		o.observer.ObserveObject(operation, t, outcome)
	}
}

// aborts reports whether err ends the whole operation rather than a single
// object.
func aborts(err error) bool {
	return errors.Is(err, kibana.ErrTransport) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
