package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/panelport/internal/output"
	"github.com/hupe1980/panelport/internal/savedobject"
)

type listOptions struct {
	objectType string
	search     string
	format     string
	perPage    int
}

func newListCommand() *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved objects of one type",
		Long: `List pages through the saved objects of one type (dashboards by
default). Pages the server fails to produce are skipped with a warning.

Output formats: table, json, yaml, ids.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.objectType, "type", string(savedobject.TypeDashboard), "saved object type: dashboard, visualization, search, index-pattern")
	f.StringVar(&opts.search, "search", "", "only list objects matching this query")
	f.StringVarP(&opts.format, "output", "o", "table", "output format: "+output.DefaultRegistry().AvailableFormats())

	_ = cmd.RegisterFlagCompletionFunc("type", completeTypes)
	_ = cmd.RegisterFlagCompletionFunc("output", completeValues(output.DefaultRegistry().Formats()...))
	f.IntVar(&opts.perPage, "per-page", 100, "objects requested per page")

	return cmd
}

func runList(cmd *cobra.Command, opts *listOptions) error {
	t, err := savedobject.ParseType(opts.objectType)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	render, err := output.DefaultRegistry().Renderer(opts.format)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	var objs []*savedobject.Object

	listOpts := savedobject.ListOptions{Type: t, Search: opts.search, PerPage: opts.perPage}

	err = s.client.ListAll(cmd.Context(), listOpts, func(p *savedobject.Page) error {
		objs = append(objs, p.Objects...)
		return nil
	})
	if err != nil {
		return runtimeError(fmt.Errorf("listing %s objects: %w", t, err))
	}

	return render(cmd.OutOrStdout(), objs)
}
