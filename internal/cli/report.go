package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/hupe1980/panelport/internal/migrate"
)

// actionColors maps import actions to their display color. All codes have
// the same length so padded cells stay aligned.
var actionColors = map[migrate.Action]color.Attribute{
	migrate.ActionCreate:       color.FgGreen,
	migrate.ActionUpdate:       color.FgYellow,
	migrate.ActionSkipFiltered: color.FgHiBlack,
	migrate.ActionSkipNotNewer: color.FgCyan,
	migrate.ActionFail:         color.FgRed,
}

// renderReport writes one row per object followed by a summary line.
func renderReport(w io.Writer, r *migrate.Report, useColor bool) {
	if len(r.Results) == 0 {
		_, _ = fmt.Fprintln(w, "nothing to import")
		return
	}

	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true

	table.AddRow("ACTION", "TYPE", "ID", "DETAIL")

	for _, res := range r.Results {
		table.AddRow(paintAction(res.Action, useColor), res.Key.Type, res.Key.ID, detail(res))
	}

	_, _ = fmt.Fprintln(w, table)
	_, _ = fmt.Fprintln(w, summarize(r))
}

func paintAction(a migrate.Action, useColor bool) string {
	cell := fmt.Sprintf("%-14s", a)

	c := color.New(actionColors[a])
	if useColor {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	return c.Sprint(cell)
}

func detail(res migrate.Result) string {
	switch {
	case res.Reason != "":
		return res.Reason
	case len(res.Steps) > 0:
		return "migrated: " + strings.Join(res.Steps, ", ")
	case res.Title != "":
		return res.Title
	default:
		return ""
	}
}

// summarize returns e.g. "3 created, 1 updated, 2 skipped, 0 failed".
func summarize(r *migrate.Report) string {
	skipped := r.Count(migrate.ActionSkipFiltered) + r.Count(migrate.ActionSkipNotNewer)

	return fmt.Sprintf("%d created, %d updated, %d skipped, %d failed",
		r.Count(migrate.ActionCreate), r.Count(migrate.ActionUpdate), skipped, r.Count(migrate.ActionFail))
}
