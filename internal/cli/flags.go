package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/panelport/internal/config"
	"github.com/hupe1980/panelport/internal/filter"
	"github.com/hupe1980/panelport/internal/migrate"
)

// registerConnectionFlags adds the persistent platform connection flags.
// Their names match the config keys so viper binds them directly.
func registerConnectionFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.String("kibana-url", config.DefaultKibanaURL, "base URL of the Kibana instance")
	pf.String("username", "", "basic auth username")
	pf.String("password", "", "basic auth password (prefer PANELPORT_PASSWORD)")
	pf.Bool("insecure-skip-verify", false, "skip TLS certificate verification")
	pf.Duration("timeout", config.DefaultTimeout, "timeout of a single request")
	pf.Int("max-retries", config.DefaultMaxRetries, "retries of failed requests (0 disables)")
	pf.Duration("retry-wait", config.DefaultRetryWait, "initial wait between retries")
	pf.Float64("rate-limit", 0, "maximum requests per second (0 is unlimited)")
	pf.String("target-version", "", "Kibana version to migrate objects for (default: ask the server)")
	pf.String("release-key", config.DefaultReleaseKey, "attribute holding the release marker")
}

// importOptions are shared by import, plan and watch.
type importOptions struct {
	dataSources    []string
	includeStudies bool
	strict         bool
	excludeTypes   []string
	excludeIDs     []string
}

// registerImportFlags adds the bundle selection flags to a command.
func registerImportFlags(cmd *cobra.Command, opts *importOptions) {
	f := cmd.Flags()
	f.StringSliceVar(&opts.dataSources, "data-sources", nil, "only import objects of these data sources or data source groups")
	f.BoolVar(&opts.includeStudies, "include-studies", false, "keep study visualizations and panels")
	f.BoolVar(&opts.includeStudies, "add-vis-studies", false, "alias for --include-studies")
	f.BoolVar(&opts.strict, "strict", false, "only overwrite objects when the bundle carries a newer release")
	f.StringSliceVar(&opts.excludeTypes, "exclude-type", nil, "drop bundle objects of these types")
	f.StringSliceVar(&opts.excludeIDs, "exclude-id", nil, "drop bundle objects whose id matches these shell patterns")

	_ = f.MarkHidden("add-vis-studies")
	_ = cmd.RegisterFlagCompletionFunc("exclude-type", completeTypeList)

	cmd.ValidArgsFunction = completeBundleFiles
}

// migrateOptions converts the selection flags into import options and the
// extra exclusion filters.
func (o *importOptions) migrateOptions(cfg *config.Config) (migrate.ImportOptions, []migrate.Option, error) {
	mo := migrate.ImportOptions{
		DataSources:    cfg.ExpandDataSources(o.dataSources),
		IncludeStudies: o.includeStudies,
		Strict:         o.strict,
	}

	var filters []filter.Filter

	if len(o.excludeTypes) > 0 {
		f, err := filter.NewTypeFilter(o.excludeTypes)
		if err != nil {
			return mo, nil, &ExitError{Code: ExitUsage, Err: err}
		}

		filters = append(filters, f)
	}

	if len(o.excludeIDs) > 0 {
		f, err := filter.NewIDFilter(o.excludeIDs)
		if err != nil {
			return mo, nil, &ExitError{Code: ExitUsage, Err: err}
		}

		filters = append(filters, f)
	}

	var extra []migrate.Option
	if len(filters) > 0 {
		extra = append(extra, migrate.WithFilters(filters...))
	}

	return mo, extra, nil
}
