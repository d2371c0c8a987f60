package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/panelport/internal/migrate"
	"github.com/hupe1980/panelport/internal/plan"
)

type planOptions struct {
	importOptions

	// Output format: "table" (default), "json", "yaml", "compact".
	format string
	diff   bool
}

func newPlanCommand() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Preview what an import would change",
		Long: `Plan reads the target instance and shows, for every object of the
bundle, whether an import would create, update or skip it, which version
migrations would run and why objects are skipped or would fail. Nothing
is written.

With --diff each create and update carries a unified diff between the
stored object and the object as it would be written. Embedded JSON
attributes such as panelsJSON are expanded so changes show field by
field.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "table", "output format: table, json, yaml, compact")
	f.BoolVar(&opts.diff, "diff", false, "show unified diffs against the stored objects")

	_ = cmd.RegisterFlagCompletionFunc("format", completeValues("table", "json", "yaml", "compact"))

	registerImportFlags(cmd, &opts.importOptions)

	return cmd
}

func runPlan(cmd *cobra.Command, file string, opts *planOptions) error {
	switch opts.format {
	case "table", "json", "yaml", "compact":
	default:
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("unsupported format %q (use table, json, yaml or compact)", opts.format)}
	}

	bundles, err := readBundles([]string{file})
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	importOpts, extra, err := opts.migrateOptions(s.cfg)
	if err != nil {
		return err
	}

	im := migrate.NewImporter(s.client, append(s.migrateOptions(), extra...)...)

	p, err := im.Plan(cmd.Context(), bundles[0], importOpts)
	if err != nil {
		return runtimeError(fmt.Errorf("planning %s: %w", file, err))
	}

	result, err := plan.Build(file, p, plan.BuildOptions{Diff: opts.diff})
	if err != nil {
		return runtimeError(err)
	}

	w := cmd.OutOrStdout()

	switch opts.format {
	case "json":
		if err := plan.FormatPlanJSON(w, result); err != nil {
			return &ExitError{Code: ExitFailure, Err: fmt.Errorf("formatting JSON: %w", err)}
		}
	case "yaml":
		if err := plan.FormatPlanYAML(w, result); err != nil {
			return &ExitError{Code: ExitFailure, Err: fmt.Errorf("formatting YAML: %w", err)}
		}
	case "compact":
		plan.FormatPlanCompact(w, result)
	default:
		plan.FormatPlan(w, result, useColor(s.cfg, w))
	}

	return nil
}
