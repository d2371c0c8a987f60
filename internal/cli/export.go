package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/panelport/internal/bundle"
	"github.com/hupe1980/panelport/internal/migrate"
	"github.com/hupe1980/panelport/internal/output"
)

type exportOptions struct {
	dashboard   string
	outputPath  string
	split       bool
	concurrency int
	metricsFile string
}

func newExportCommand() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export [dashboard-id]",
		Short: "Export a dashboard and its dependencies into a bundle file",
		Long: `Export reads a dashboard together with every visualization, saved
search and index pattern it references and writes them as one JSON bundle.

The dashboard and each index pattern are stamped with a fresh release
marker so a later strict import can tell whether the bundle is newer than
what the target instance holds.

With --split-index-patterns every index pattern is written to its own
<id>-index-pattern.json next to the bundle. Existing files are never
overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.dashboard = args[0]
			}

			return runExport(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dashboard, "dashboard", "", "id of the dashboard to export")
	f.StringVarP(&opts.outputPath, "output", "o", "", "bundle file path (default: stdout)")
	f.BoolVar(&opts.split, "split-index-patterns", false, "write index patterns to separate files")
	f.IntVar(&opts.concurrency, "concurrency", 4, "parallel requests while resolving dependencies")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	return cmd
}

func runExport(cmd *cobra.Command, opts *exportOptions) error {
	if opts.dashboard == "" {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("a dashboard id is required (argument or --dashboard)")}
	}

	if opts.split && opts.outputPath == "" {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("--split-index-patterns requires --output")}
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	defer s.writeMetrics(opts.metricsFile)

	ex := migrate.NewExporter(s.client, append(s.migrateOptions(), migrate.WithConcurrency(opts.concurrency))...)

	b, err := ex.Export(cmd.Context(), opts.dashboard)
	if err != nil {
		return runtimeError(fmt.Errorf("exporting dashboard %q: %w", opts.dashboard, err))
	}

	if opts.outputPath == "" {
		data, encErr := bundle.Encode(b)
		if encErr != nil {
			return runtimeError(encErr)
		}

		return output.NewStdoutWriter(cmd.OutOrStdout()).Write(data)
	}

	written, err := ex.WriteFiles(b, opts.outputPath, opts.split)
	if err != nil {
		return runtimeError(err)
	}

	for _, p := range written {
		printf(cmd, "wrote %s\n", p)
	}

	printf(cmd, "exported %d objects from dashboard %q\n", b.Len(), opts.dashboard)

	return nil
}

// writeMetrics writes the session's counters when a path is set. Failures
// are logged; metrics never change the outcome of a command.
func (s *session) writeMetrics(path string) {
	if path == "" {
		return
	}

	if err := s.recorder.WriteTextfile(path); err != nil {
		s.logger.Warn("writing metrics file failed", slog.String("path", path), slog.Any("error", err))
		return
	}

	s.logger.Debug("wrote metrics file", slog.String("path", path))
}
