package output

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"

	"github.com/hupe1980/panelport/internal/savedobject"
)

// ObjectRow is the listing view of a saved object.
type ObjectRow struct {
	Type      string `json:"type" yaml:"type"`
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	UpdatedAt string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Rows converts objects into listing rows.
func Rows(objs []*savedobject.Object) []ObjectRow {
	rows := make([]ObjectRow, 0, len(objs))

	for _, o := range objs {
		rows = append(rows, ObjectRow{
			Type:      string(o.Type),
			ID:        o.ID,
			Title:     o.Title(),
			UpdatedAt: o.UpdatedAt,
		})
	}

	return rows
}

// RenderTable writes objects as an aligned table. Update times are shown
// relative to now.
func RenderTable(w io.Writer, objs []*savedobject.Object) error {
	return renderTable(w, objs, time.Now())
}

func renderTable(w io.Writer, objs []*savedobject.Object, now time.Time) error {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true

	table.AddRow("TYPE", "ID", "TITLE", "UPDATED")

	for _, o := range objs {
		updated := "-"
		if ts, ok := o.Updated(); ok {
			updated = humanize.RelTime(ts, now, "ago", "from now")
		}

		table.AddRow(o.Type, o.ID, o.Title(), updated)
	}

	_, err := fmt.Fprintln(w, table)

	return err
}
