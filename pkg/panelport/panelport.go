// Package panelport provides a public Go API for exporting Kibana
// dashboards into bundles and importing bundles into Kibana.
//
// This package exposes the panelport orchestrator as a library, allowing
// programmatic use without the CLI.
//
// Basic usage:
//
//	data, err := panelport.Export(ctx, "http://localhost:5601", "overview")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := panelport.Import(ctx, "https://kibana.example.com", data,
//	    panelport.WithDataSources("git", "github"),
//	    panelport.WithStrict(),
//	)
package panelport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/panelport/internal/bundle"
	"github.com/hupe1980/panelport/internal/compat"
	"github.com/hupe1980/panelport/internal/kibana"
	"github.com/hupe1980/panelport/internal/migrate"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// Report is the per-object outcome of an import.
type Report = migrate.Report

// Result is the outcome for one object of an import.
type Result = migrate.Result

// Action is what an import did to one object.
type Action = migrate.Action

// Import actions.
const (
	ActionCreate       = migrate.ActionCreate
	ActionUpdate       = migrate.ActionUpdate
	ActionSkipFiltered = migrate.ActionSkipFiltered
	ActionSkipNotNewer = migrate.ActionSkipNotNewer
	ActionFail         = migrate.ActionFail
)

// Sentinel errors, usable with errors.Is.
var (
	// ErrMalformed is returned for bundle data that cannot be decoded.
	ErrMalformed = bundle.ErrMalformed
	// ErrNotFound is returned when the exported dashboard does not exist.
	ErrNotFound = savedobject.ErrNotFound
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Option configures Export and Import.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	username      string
	password      string
	timeout       time.Duration
	targetVersion string
	releaseKey    string

	dataSources    []string
	includeStudies bool
	strict         bool
}

// WithLogger sets a logger. Library calls are silent by default.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithBasicAuth authenticates every request.
func WithBasicAuth(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithTargetVersion pins the Kibana version objects are migrated for
// instead of asking the server.
func WithTargetVersion(v string) Option { return func(o *options) { o.targetVersion = v } }

// WithReleaseKey sets the attribute holding the release marker.
func WithReleaseKey(key string) Option { return func(o *options) { o.releaseKey = key } }

// WithDataSources limits an import to objects of these data sources.
func WithDataSources(names ...string) Option {
	return func(o *options) { o.dataSources = append(o.dataSources, names...) }
}

// WithStudies keeps study visualizations and panels on import.
func WithStudies() Option { return func(o *options) { o.includeStudies = true } }

// WithStrict only overwrites objects when the bundle is newer.
func WithStrict() Option { return func(o *options) { o.strict = true } }

func newOptions(opts []Option) *options {
	o := &options{
		logger:  discardLogger(),
		timeout: kibana.DefaultTimeout,
	}

	for _, fn := range opts {
		fn(o)
	}

	return o
}

func (o *options) client(kibanaURL string) (*kibana.Client, error) {
	copts := []kibana.Option{
		kibana.WithLogger(o.logger),
		kibana.WithTimeout(o.timeout),
	}

	if o.username != "" {
		copts = append(copts, kibana.WithBasicAuth(o.username, o.password))
	}

	return kibana.New(kibanaURL, copts...)
}

func (o *options) migrate() ([]migrate.Option, error) {
	mopts := []migrate.Option{
		migrate.WithLogger(o.logger),
		migrate.WithReleaseKey(o.releaseKey),
	}

	if o.targetVersion != "" {
		v, err := compat.ParseVersion(o.targetVersion)
		if err != nil {
			return nil, err
		}

		mopts = append(mopts, migrate.WithTargetVersion(v))
	}

	return mopts, nil
}

// Export reads the dashboard and everything it references from the
// instance at kibanaURL and returns the encoded bundle.
func Export(ctx context.Context, kibanaURL, dashboardID string, opts ...Option) ([]byte, error) {
	if dashboardID == "" {
		return nil, errors.New("dashboard id must not be empty")
	}

	o := newOptions(opts)

	client, err := o.client(kibanaURL)
	if err != nil {
		return nil, err
	}

	mopts, err := o.migrate()
	if err != nil {
		return nil, err
	}

	b, err := migrate.NewExporter(client, mopts...).Export(ctx, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("exporting dashboard %q: %w", dashboardID, err)
	}

	return bundle.Encode(b)
}

// Import decodes data and writes its objects to the instance at
// kibanaURL. A returned report may be partial when err is non-nil; check
// report.Err() for objects that failed individually.
func Import(ctx context.Context, kibanaURL string, data []byte, opts ...Option) (*Report, error) {
	b, err := bundle.Decode(data)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)

	client, err := o.client(kibanaURL)
	if err != nil {
		return nil, err
	}

	mopts, err := o.migrate()
	if err != nil {
		return nil, err
	}

	return migrate.NewImporter(client, mopts...).Import(ctx, b, migrate.ImportOptions{
		DataSources:    o.dataSources,
		IncludeStudies: o.includeStudies,
		Strict:         o.strict,
	})
}
