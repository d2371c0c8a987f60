package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/hupe1980/panelport/internal/bundle"
	"github.com/hupe1980/panelport/internal/output"
	"github.com/hupe1980/panelport/internal/release"
	"github.com/hupe1980/panelport/internal/resolve"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// ErrOutputExists is returned when an export target already exists.
var ErrOutputExists = output.ErrExists

// indexPatternSuffix names the files of split index patterns.
const indexPatternSuffix = "-index-pattern.json"

// Exporter reads dashboards from a store into stamped bundles.
type Exporter struct {
	resolver *resolve.Resolver
	options
}

// NewExporter creates an exporter reading from store.
func NewExporter(store savedobject.Getter, opts ...Option) *Exporter {
	o := newOptions(opts)

	return &Exporter{
		resolver: resolve.New(store,
			resolve.WithLogger(o.logger),
			resolve.WithConcurrency(o.concurrency)),
		options: o,
	}
}

// Export resolves the dashboard and stamps it and every index pattern
// with a fresh release marker, so each can be re-imported on its own.
func (ex *Exporter) Export(ctx context.Context, dashboardID string) (*bundle.Bundle, error) {
	b, err := ex.resolver.Resolve(ctx, dashboardID)
	if err != nil {
		return nil, err
	}

	now := ex.now()

	stamped := append([]*savedobject.Object{b.Dashboard}, b.IndexPatterns...)
	for _, o := range stamped {
		marker := release.Stamp(o, ex.releaseKey, now)
		ex.logger.Debug("stamped release marker",
			slog.String("object", o.Key().String()),
			slog.Int64("marker", marker))
	}

	for _, o := range b.Objects() {
		ex.observe(OperationExport, o.Type, "exported")
	}

	ex.logger.Info("exported dashboard",
		slog.String("dashboard", dashboardID),
		slog.Int("visualizations", len(b.Visualizations)),
		slog.Int("searches", len(b.Searches)),
		slog.Int("index_patterns", len(b.IndexPatterns)))

	return b, nil
}

type artifact struct {
	path string
	data []byte
}

// WriteFiles writes b to path. With split, index patterns are written next
// to it as <id>-index-pattern.json, each a standalone bundle. Every target
// is checked first: if one exists, nothing is written and the error
// matches ErrOutputExists. It returns the written paths.
func (ex *Exporter) WriteFiles(b *bundle.Bundle, path string, split bool) ([]string, error) {
	artifacts, err := ex.artifacts(b, path, split)
	if err != nil {
		return nil, err
	}

	for _, a := range artifacts {
		exists, err := afero.Exists(ex.fs, a.path)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", a.path, err)
		}

		if exists {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, a.path)
		}
	}

	written := make([]string, 0, len(artifacts))

	for _, a := range artifacts {
		w := output.NewFileWriter(a.path,
			output.WithFs(ex.fs),
			output.WithExclusive(),
			output.WithLogger(ex.logger))

		if err := w.Write(a.data); err != nil {
			return written, err
		}

		written = append(written, a.path)

		ex.logger.Info("wrote bundle file", slog.String("path", a.path))
	}

	return written, nil
}

func (ex *Exporter) artifacts(b *bundle.Bundle, path string, split bool) ([]artifact, error) {
	if !split || b.IndexPatternOnly() || len(b.IndexPatterns) == 0 {
		data, err := bundle.Encode(b)
		if err != nil {
			return nil, err
		}

		return []artifact{{path: path, data: data}}, nil
	}

	main, parts := b.SplitIndexPatterns()

	data, err := bundle.EncodeWithoutIndexPatterns(main)
	if err != nil {
		return nil, err
	}

	artifacts := []artifact{{path: path, data: data}}
	dir := filepath.Dir(path)

	for _, part := range parts {
		ip := part.IndexPatterns[0]

		data, err := bundle.Encode(part)
		if err != nil {
			return nil, err
		}

		artifacts = append(artifacts, artifact{
			path: filepath.Join(dir, fileSafe(ip.ID)+indexPatternSuffix),
			data: data,
		})
	}

	seen := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		if seen[a.path] {
			return nil, fmt.Errorf("split index patterns collide on %s", a.path)
		}

		seen[a.path] = true
	}

	return artifacts, nil
}

var unsafeFileChars = strings.NewReplacer("/", "_", "\\", "_")

func fileSafe(id string) string {
	return unsafeFileChars.Replace(id)
}
