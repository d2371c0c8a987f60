package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"

	"github.com/hupe1980/panelport/internal/bundle"
	"github.com/hupe1980/panelport/internal/compat"
	"github.com/hupe1980/panelport/internal/filter"
	"github.com/hupe1980/panelport/internal/logging"
	"github.com/hupe1980/panelport/internal/release"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// ImportOptions selects what part of a bundle is imported.
type ImportOptions struct {
	// DataSources limits the import to objects of these data sources.
	// Empty imports everything.
	DataSources []string
	// IncludeStudies keeps study visualizations and panels.
	IncludeStudies bool
	// Strict only writes objects whose release marker beats the stored
	// copy.
	Strict bool
}

// Versioner is implemented by stores that report the platform version.
type Versioner interface {
	Version(ctx context.Context) (string, error)
}

// Change is the planned action for one object. Desired is the object as
// it would be written; Current is the stored copy, nil when absent.
type Change struct {
	Key     savedobject.Key
	Title   string
	Action  Action
	Reason  string
	Steps   []string
	Desired *savedobject.Object
	Current *savedobject.Object
	Err     error
}

func (c *Change) result() Result {
	return Result{
		Key:    c.Key,
		Title:  c.Title,
		Action: c.Action,
		Reason: c.Reason,
		Steps:  c.Steps,
		Err:    c.Err,
	}
}

func (c *Change) fail(err error) {
	c.Action = ActionFail
	c.Reason = err.Error()
	c.Err = err
}

// Plan lists the changes an import would make, in write order.
type Plan struct {
	Changes []*Change
	// Target is the schema version the compatibility chain ran for; nil
	// when unknown.
	Target *semver.Version
}

// Count returns the number of changes with action a.
func (p *Plan) Count(a Action) int {
	n := 0

	for _, c := range p.Changes {
		if c.Action == a {
			n++
		}
	}

	return n
}

// Importer writes bundles to a saved-object store.
type Importer struct {
	store savedobject.Store
	options
}

// NewImporter creates an importer writing to store.
func NewImporter(store savedobject.Store, opts ...Option) *Importer {
	return &Importer{store: store, options: newOptions(opts)}
}

// Import plans the import of b and applies it. Objects are written in
// dependency order; a rejected write is recorded and the import goes on.
// Transport failures and cancellation abort the import and return the
// partial report together with the error.
func (im *Importer) Import(ctx context.Context, b *bundle.Bundle, opts ImportOptions) (*Report, error) {
	report := &Report{}

	plan, err := im.Plan(ctx, b, opts)
	if err != nil {
		return report, err
	}

	for _, c := range plan.Changes {
		res := c.result()

		if err := im.apply(ctx, c); err != nil {
			res.Action = ActionFail
			res.Reason = err.Error()
			res.Err = err

			if aborts(err) {
				report.add(res)
				im.observe(OperationImport, c.Key.Type, string(ActionFail))

				return report, fmt.Errorf("importing %s: %w", c.Key, err)
			}
		}

		im.log(res)
		im.observe(OperationImport, c.Key.Type, string(res.Action))
		report.add(res)
	}

	return report, nil
}

func (im *Importer) apply(ctx context.Context, c *Change) error {
	var err error

	switch c.Action {
	case ActionCreate:
		_, err = im.store.Create(ctx, c.Desired)
	case ActionUpdate:
		_, err = im.store.Update(ctx, c.Desired)
	}

	return err
}

func (im *Importer) log(res Result) {
	attrs := []any{
		logging.Object(res.Key),
		slog.String("action", string(res.Action)),
	}

	switch res.Action {
	case ActionFail:
		im.logger.Error("import failed", append(attrs, slog.String("reason", res.Reason))...)
	case ActionSkipNotNewer:
		im.logger.Warn("not newer than stored copy, skipping", attrs...)
	case ActionSkipFiltered:
		im.logger.Debug("filtered out", append(attrs, slog.String("reason", res.Reason))...)
	default:
		if len(res.Steps) > 0 {
			attrs = append(attrs, slog.Any("migrations", res.Steps))
		}

		im.logger.Info("imported", attrs...)
	}
}

// Plan computes the changes an import of b would make without writing
// anything. Stored objects are read to decide between create and update
// and, in strict mode, to compare release markers.
//
// Dashboard bundles are gated as a whole by the dashboard's marker;
// index-pattern-only bundles gate each index pattern.
func (im *Importer) Plan(ctx context.Context, b *bundle.Bundle, opts ImportOptions) (*Plan, error) {
	plan := &Plan{Target: im.targetVersion(ctx)}

	objs := b.Objects()

	sel, err := im.selection(opts).Apply(ctx, objs)
	if err != nil {
		return nil, fmt.Errorf("filtering bundle: %w", err)
	}

	excluded := make(map[savedobject.Key]string, len(sel.Excluded))
	for _, e := range sel.Excluded {
		excluded[e.Object.Key()] = e.Reason
	}

	var verdict *gate

	if opts.Strict && b.Dashboard != nil {
		verdict, err = im.dashboardGate(ctx, b.Dashboard)
		if err != nil {
			return nil, err
		}
	}

	for _, o := range objs {
		c := &Change{Key: o.Key(), Title: o.Title()}
		plan.Changes = append(plan.Changes, c)

		if reason, ok := excluded[c.Key]; ok {
			c.Action = ActionSkipFiltered
			c.Reason = reason

			continue
		}

		if verdict != nil && verdict.blocks(c) {
			continue
		}

		if err := im.planObject(ctx, c, o, b, opts, plan.Target); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

func (im *Importer) planObject(
	ctx context.Context,
	c *Change,
	o *savedobject.Object,
	b *bundle.Bundle,
	opts ImportOptions,
	target *semver.Version,
) error {
	desired := o

	if o.Type == savedobject.TypeDashboard {
		clean, removed, err := filter.CleanDashboard(o, opts.DataSources, opts.IncludeStudies, b.VisualizationTitles())
		if err != nil {
			c.fail(err)
			return nil
		}

		for _, p := range removed {
			im.logger.Debug("dropping panel",
				slog.String("dashboard", o.ID),
				slog.String("panel", p.ID),
				slog.String("title", p.Title))
		}

		desired = clean
	}

	migrated, steps, err := im.chain.Apply(desired, target)
	if err != nil {
		c.fail(err)
		return nil
	}

	delete(migrated.Attributes, savedobject.AttrReleaseDate)

	c.Desired = migrated
	c.Steps = steps

	current, err := im.current(ctx, c.Key)
	if err != nil {
		if aborts(err) {
			return fmt.Errorf("reading %s: %w", c.Key, err)
		}

		c.fail(err)

		return nil
	}

	c.Current = current

	if opts.Strict && b.Dashboard == nil {
		newer, err := release.IsNewer(current, o, im.releaseKey)
		if err != nil {
			c.fail(err)
			return nil
		}

		if !newer {
			c.Action = ActionSkipNotNewer
			c.Reason = "release marker is not newer than the stored copy"

			return nil
		}
	}

	if current == nil {
		c.Action = ActionCreate
	} else {
		c.Action = ActionUpdate
	}

	return nil
}

// selection builds the filter chain for one import.
func (im *Importer) selection(opts ImportOptions) *filter.Chain {
	filters := []filter.Filter{
		filter.NewDataSourceFilter(opts.DataSources),
		filter.NewStudyFilter(opts.IncludeStudies),
	}

	return filter.NewChain(append(filters, im.filters...)...)
}

func (im *Importer) current(ctx context.Context, key savedobject.Key) (*savedobject.Object, error) {
	o, err := im.store.Get(ctx, key.Type, key.ID)
	if errors.Is(err, savedobject.ErrNotFound) {
		return nil, nil
	}

	return o, err
}

// targetVersion returns the pinned target version or asks the store once.
// An unknown version runs every compatibility step; they are idempotent.
func (im *Importer) targetVersion(ctx context.Context) *semver.Version {
	if im.target != nil {
		return im.target
	}

	v, ok := im.store.(Versioner)
	if !ok {
		return nil
	}

	raw, err := v.Version(ctx)
	if err != nil {
		im.logger.Warn("cannot determine platform version, running all migrations", slog.Any("error", err))
		return nil
	}

	target, err := compat.ParseVersion(raw)
	if err != nil {
		im.logger.Warn("cannot parse platform version, running all migrations", slog.Any("error", err))
		return nil
	}

	im.logger.Debug("target platform version", slog.String("version", target.String()))

	return target
}

// gate is the strict-mode verdict for a whole dashboard bundle.
type gate struct {
	action Action
	reason string
	err    error
}

func (g *gate) blocks(c *Change) bool {
	if g.action == "" {
		return false
	}

	c.Action = g.action
	c.Reason = g.reason
	c.Err = g.err

	return true
}

func (im *Importer) dashboardGate(ctx context.Context, dash *savedobject.Object) (*gate, error) {
	current, err := im.current(ctx, dash.Key())
	if err != nil {
		if aborts(err) {
			return nil, fmt.Errorf("reading %s: %w", dash.Key(), err)
		}

		return &gate{action: ActionFail, reason: err.Error(), err: err}, nil
	}

	newer, err := release.IsNewer(current, dash, im.releaseKey)
	if err != nil {
		return &gate{action: ActionFail, reason: err.Error(), err: err}, nil
	}

	if !newer {
		return &gate{
			action: ActionSkipNotNewer,
			reason: fmt.Sprintf("%s is not newer than the stored copy", dash.Key()),
		}, nil
	}

	return &gate{}, nil
}
