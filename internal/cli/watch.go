package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/panelport/internal/migrate"
	"github.com/hupe1980/panelport/internal/watch"
)

type watchOptions struct {
	importOptions

	debounce time.Duration
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <file>...",
		Short: "Re-import bundle files whenever they change",
		Long: `Watch imports the given bundle files once and then again every time
one of them is saved. File changes are debounced to avoid rapid re-runs.
A failing run is reported and the watcher keeps going.

Stop with Ctrl-C.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}

	registerImportFlags(cmd, &opts.importOptions)
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")

	return cmd
}

func runWatch(cmd *cobra.Command, files []string, opts *watchOptions) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	importOpts, extra, err := opts.migrateOptions(s.cfg)
	if err != nil {
		return err
	}

	im := migrate.NewImporter(s.client, append(s.migrateOptions(), extra...)...)

	runFn := func(ctx context.Context, path string) (*watch.RunResult, error) {
		bundles, err := readBundles([]string{path})
		if err != nil {
			return nil, err
		}

		report, err := im.Import(ctx, bundles[0], importOpts)
		if err != nil {
			return nil, err
		}

		return &watch.RunResult{
			Written: report.Written(),
			Skipped: report.Count(migrate.ActionSkipFiltered) + report.Count(migrate.ActionSkipNotNewer),
			Failed:  len(report.Failed()),
		}, nil
	}

	watchOpts := watch.DefaultOptions()
	watchOpts.Files = files
	watchOpts.Debounce = opts.debounce
	watchOpts.Logger = s.logger
	watchOpts.Out = cmd.ErrOrStderr()

	if err := watch.Run(cmd.Context(), watchOpts, runFn); err != nil {
		return runtimeError(err)
	}

	return nil
}
