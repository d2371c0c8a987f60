package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hupe1980/panelport/internal/bundle"
	"github.com/hupe1980/panelport/internal/migrate"
)

type importCommandOptions struct {
	importOptions

	metricsFile string
}

func newImportCommand() *cobra.Command {
	opts := &importCommandOptions{}

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import bundle files into Kibana",
		Long: `Import writes the objects of one or more bundle files to Kibana in
dependency order: index patterns, saved searches, visualizations and
finally the dashboard.

Objects are upgraded for the target Kibana version on the way. With
--data-sources only the objects belonging to the named data sources (or
configured data source groups) are written and the dashboard keeps only
their panels. With --strict an object is only overwritten when the
bundle carries a newer release marker than the stored copy.

Exit codes: 0 success, 1 error, 2 usage, 3 some objects failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args, opts)
		},
	}

	registerImportFlags(cmd, &opts.importOptions)
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	return cmd
}

func runImport(cmd *cobra.Command, files []string, opts *importCommandOptions) error {
	// Every file is decoded before anything is written.
	bundles, err := readBundles(files)
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	defer s.writeMetrics(opts.metricsFile)

	importOpts, extra, err := opts.migrateOptions(s.cfg)
	if err != nil {
		return err
	}

	im := migrate.NewImporter(s.client, append(s.migrateOptions(), extra...)...)
	report := &migrate.Report{}

	for i, b := range bundles {
		s.logger.Debug("importing bundle", slog.String("file", files[i]), slog.Int("objects", b.Len()))

		r, importErr := im.Import(cmd.Context(), b, importOpts)
		report.Merge(r)

		if importErr != nil {
			renderReport(cmd.OutOrStdout(), report, useColor(s.cfg, cmd.OutOrStdout()))
			return runtimeError(fmt.Errorf("%s: %w", files[i], importErr))
		}
	}

	renderReport(cmd.OutOrStdout(), report, useColor(s.cfg, cmd.OutOrStdout()))

	if err := report.Err(); err != nil {
		return &ExitError{Code: ExitPartial, Err: fmt.Errorf("%d of %d objects failed: %w", len(report.Failed()), len(report.Results), err)}
	}

	return nil
}

// readBundles decodes every file, stopping at the first failure.
func readBundles(files []string) ([]*bundle.Bundle, error) {
	fs := afero.NewOsFs()
	bundles := make([]*bundle.Bundle, 0, len(files))

	for _, f := range files {
		b, err := bundle.ReadFile(fs, f)
		if err != nil {
			return nil, &ExitError{Code: ExitFailure, Err: err}
		}

		bundles = append(bundles, b)
	}

	return bundles, nil
}
