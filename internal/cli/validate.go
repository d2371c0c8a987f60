package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/panelport/internal/bundle"
	"github.com/hupe1980/panelport/internal/config"
)

type validateOptions struct {
	strict bool
}

func newValidateCommand() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check bundle files for missing references",
		Long: `Validate checks bundle files offline: every dashboard panel must
point at a visualization or saved search of the bundle, visualizations
must find their saved search, and panel layouts must parse. Index
patterns missing from the bundle and missing release markers are
reported as warnings.

Returns exit code 1 on errors (or on warnings with --strict).`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeBundleFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail on warnings in addition to errors")

	return cmd
}

func runValidate(cmd *cobra.Command, files []string, opts *validateOptions) error {
	bundles, err := readBundles(files)
	if err != nil {
		return err
	}

	cfg := config.FromContext(cmd.Context())

	var errCount, warnCount int

	for i, b := range bundles {
		result := bundle.Validate(b, cfg.ReleaseKey)

		if len(files) > 1 {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s:\n", files[i])
		}

		_, _ = fmt.Fprint(cmd.ErrOrStderr(), bundle.FormatValidationResult(result))

		errCount += len(result.Errors())
		warnCount += len(result.Warnings())
	}

	if errCount > 0 {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("validation failed with %d error(s)", errCount)}
	}

	if opts.strict && warnCount > 0 {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("validation failed with %d warning(s) (strict mode)", warnCount)}
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Validation passed.")

	return nil
}
