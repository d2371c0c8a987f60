// Package resolve walks a dashboard's object graph and collects every
// visualization, saved search and index pattern it transitively references
// into a deduplicated bundle.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/panelport/internal/bundle"
	"github.com/hupe1980/panelport/internal/logging"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// Resolver builds bundles from a saved-object store.
type Resolver struct {
	store       savedobject.Getter
	logger      *slog.Logger
	concurrency int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets a logger for the Resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithConcurrency prefetches the objects named by the dashboard panels
// with up to n requests in flight. Values below 2 keep resolution
// sequential.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		r.concurrency = n
	}
}

// New creates a resolver reading from store.
func New(store savedobject.Getter, opts ...Option) *Resolver {
	r := &Resolver{
		store:       store,
		logger:      slog.Default(),
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve fetches the dashboard and everything its panels depend on. A
// missing dashboard yields an error matching savedobject.ErrNotFound;
// missing dependencies are logged and skipped. Panels are walked in layout
// order, so the first occurrence of an object decides its position.
func (r *Resolver) Resolve(ctx context.Context, dashboardID string) (*bundle.Bundle, error) {
	w := &walk{
		fetcher: newFetcher(r.store),
		logger:  r.logger.With(slog.String("dashboard", dashboardID)),
		b:       bundle.New(),
	}

	dash, err := w.fetch(ctx, savedobject.Key{Type: savedobject.TypeDashboard, ID: dashboardID})
	if err != nil {
		return nil, fmt.Errorf("resolving dashboard: %w", err)
	}

	w.b.Add(dash)

	refs, ok, err := dash.PanelRefs()
	if err != nil {
		return nil, fmt.Errorf("resolving dashboard: %w", err)
	}

	if !ok {
		w.logger.Debug("dashboard has no panel layout")
		return w.b, nil
	}

	if r.concurrency > 1 {
		if err := w.prefetch(ctx, refs, r.concurrency); err != nil {
			return nil, err
		}
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := w.panel(ctx, ref); err != nil {
			return nil, err
		}
	}

	w.logger.Debug("dashboard resolved",
		slog.Int("visualizations", len(w.b.Visualizations)),
		slog.Int("searches", len(w.b.Searches)),
		slog.Int("index_patterns", len(w.b.IndexPatterns)),
	)

	return w.b, nil
}

// walk is the state of one resolution.
type walk struct {
	*fetcher

	logger *slog.Logger
	b      *bundle.Bundle
}

func (w *walk) panel(ctx context.Context, ref savedobject.PanelRef) error {
	if ref.ID == "" {
		w.logger.Debug("skipping panel without id", slog.String("title", ref.Title))
		return nil
	}

	switch ref.Type {
	case savedobject.TypeVisualization:
		return w.visualization(ctx, ref.ID)
	case savedobject.TypeSearch:
		return w.search(ctx, ref.ID)
	default:
		w.logger.Debug("ignoring panel", logging.Object(savedobject.Key{Type: ref.Type, ID: ref.ID}))
		return nil
	}
}

func (w *walk) visualization(ctx context.Context, id string) error {
	vis, err := w.dependency(ctx, savedobject.Key{Type: savedobject.TypeVisualization, ID: id})
	if err != nil || vis == nil {
		return err
	}

	if searchID := savedobject.SavedSearchID(vis); searchID != "" {
		if err := w.search(ctx, searchID); err != nil {
			return err
		}
	}

	return w.indexPatternOf(ctx, vis)
}

func (w *walk) search(ctx context.Context, id string) error {
	s, err := w.dependency(ctx, savedobject.Key{Type: savedobject.TypeSearch, ID: id})
	if err != nil || s == nil {
		return err
	}

	return w.indexPatternOf(ctx, s)
}

func (w *walk) indexPatternOf(ctx context.Context, o *savedobject.Object) error {
	ipID, err := savedobject.IndexPatternID(o)
	if err != nil {
		w.logger.Warn("cannot read index pattern", slog.String("object", o.Key().String()), slog.Any("error", err))
		return nil
	}

	if ipID == "" {
		return nil
	}

	_, err = w.dependency(ctx, savedobject.Key{Type: savedobject.TypeIndexPattern, ID: ipID})

	return err
}

// dependency fetches and adds the object unless the bundle already holds
// it. It returns nil without error for objects already seen and for
// objects missing from the store.
func (w *walk) dependency(ctx context.Context, key savedobject.Key) (*savedobject.Object, error) {
	if w.b.Has(key) {
		return nil, nil
	}

	o, err := w.fetch(ctx, key)
	if errors.Is(err, savedobject.ErrNotFound) {
		w.logger.Warn("skipping missing dependency", slog.String("object", key.String()))
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	w.b.Add(o)

	return o, nil
}

// prefetch loads the objects named by the panels concurrently. The walk
// then reads them from the cache in layout order.
func (w *walk) prefetch(ctx context.Context, refs []savedobject.PanelRef, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	seen := make(map[savedobject.Key]bool, len(refs))

	for _, ref := range refs {
		if ref.ID == "" || (ref.Type != savedobject.TypeVisualization && ref.Type != savedobject.TypeSearch) {
			continue
		}

		key := savedobject.Key{Type: ref.Type, ID: ref.ID}
		if seen[key] {
			continue
		}

		seen[key] = true

		g.Go(func() error {
			_, err := w.fetch(gctx, key)
			if err != nil && !errors.Is(err, savedobject.ErrNotFound) {
				return err
			}

			return nil
		})
	}

	return g.Wait()
}

// fetcher memoizes store lookups, including misses, so no object is
// requested twice within one resolution.
type fetcher struct {
	store savedobject.Getter

	mu    sync.Mutex
	cache map[savedobject.Key]fetched
}

type fetched struct {
	obj *savedobject.Object
	err error
}

func newFetcher(store savedobject.Getter) *fetcher {
	return &fetcher{store: store, cache: make(map[savedobject.Key]fetched)}
}

func (f *fetcher) fetch(ctx context.Context, key savedobject.Key) (*savedobject.Object, error) {
	f.mu.Lock()
	if r, ok := f.cache[key]; ok {
		f.mu.Unlock()
		return r.obj, r.err
	}
	f.mu.Unlock()

	o, err := f.store.Get(ctx, key.Type, key.ID)
	if err != nil && !errors.Is(err, savedobject.ErrNotFound) {
		return nil, err
	}

	f.mu.Lock()
	f.cache[key] = fetched{obj: o, err: err}
	f.mu.Unlock()

	return o, err
}
