// Package plan renders what an import would do before anything is written:
// per-object actions, the compatibility migrations that apply and unified
// diffs against the stored copies.
package plan

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hupe1980/panelport/internal/migrate"
	"github.com/hupe1980/panelport/internal/output"
)

// Entry is the plan for a single object.
type Entry struct {
	Type       string   `json:"type" yaml:"type"`
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title,omitempty" yaml:"title,omitempty"`
	Action     string   `json:"action" yaml:"action"`
	Reason     string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Migrations []string `json:"migrations,omitempty" yaml:"migrations,omitempty"`
	// Unchanged marks an update whose document equals the stored one.
	Unchanged bool   `json:"unchanged,omitempty" yaml:"unchanged,omitempty"`
	Diff      string `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// Summary counts entries per outcome.
type Summary struct {
	Create    int `json:"create" yaml:"create"`
	Update    int `json:"update" yaml:"update"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Skip      int `json:"skip" yaml:"skip"`
	Fail      int `json:"fail" yaml:"fail"`
}

// Result is the rendered plan of an import.
type Result struct {
	Source  string  `json:"source,omitempty" yaml:"source,omitempty"`
	Target  string  `json:"targetVersion,omitempty" yaml:"targetVersion,omitempty"`
	Entries []Entry `json:"entries" yaml:"entries"`
	Summary Summary `json:"summary" yaml:"summary"`
}

// HasFailures reports whether any object would fail to import.
func (r *Result) HasFailures() bool {
	return r.Summary.Fail > 0
}

// BuildOptions configures Build.
type BuildOptions struct {
	// Diff attaches unified diffs to creates and updates.
	Diff        bool
	DiffOptions DiffOptions
}

// Build converts an import plan into a Result. Updates are always diffed
// to detect unchanged objects; the diff text is only kept when requested.
func Build(source string, p *migrate.Plan, opts BuildOptions) (*Result, error) {
	if opts.DiffOptions == (DiffOptions{}) {
		opts.DiffOptions = DefaultDiffOptions()
	}

	res := &Result{Source: source}
	if p.Target != nil {
		res.Target = p.Target.String()
	}

	for _, c := range p.Changes {
		e := Entry{
			Type:       string(c.Key.Type),
			ID:         c.Key.ID,
			Title:      c.Title,
			Action:     string(c.Action),
			Reason:     c.Reason,
			Migrations: c.Steps,
		}

		switch c.Action {
		case migrate.ActionCreate, migrate.ActionUpdate:
			d, err := diff(c, opts.DiffOptions)
			if err != nil {
				return nil, err
			}

			if c.Action == migrate.ActionUpdate && !d.HasDifferences {
				e.Unchanged = true
				res.Summary.Unchanged++
			} else if c.Action == migrate.ActionUpdate {
				res.Summary.Update++
			} else {
				res.Summary.Create++
			}

			if opts.Diff && d.HasDifferences {
				e.Diff = d.Unified
			}
		case migrate.ActionFail:
			res.Summary.Fail++
		default:
			res.Summary.Skip++
		}

		res.Entries = append(res.Entries, e)
	}

	return res, nil
}

func diff(c *migrate.Change, opts DiffOptions) (*DiffResult, error) {
	oldDoc, err := Document(c.Current)
	if err != nil {
		return nil, err
	}

	newDoc, err := Document(c.Desired)
	if err != nil {
		return nil, err
	}

	opts.OldLabel = labelFor(opts.OldLabel, c)
	opts.NewLabel = labelFor(opts.NewLabel, c)

	return ComputeDiff(oldDoc, newDoc, opts)
}

func labelFor(prefix string, c *migrate.Change) string {
	return prefix + "/" + c.Key.String()
}

// icon returns the marker and color for an entry.
func icon(e Entry) (string, *color.Color) {
	switch {
	case e.Unchanged:
		return "=", color.New(color.Faint)
	case e.Action == string(migrate.ActionCreate):
		return "+", color.New(color.FgGreen)
	case e.Action == string(migrate.ActionUpdate):
		return "~", color.New(color.FgYellow)
	case e.Action == string(migrate.ActionFail):
		return "!", color.New(color.FgRed)
	default:
		return "-", color.New(color.Faint)
	}
}

// FormatPlan writes a human-readable plan to w.
func FormatPlan(w io.Writer, r *Result, useColor bool) {
	if r.Source != "" {
		_, _ = fmt.Fprintf(w, "Plan: %s\n", r.Source)
	} else {
		_, _ = fmt.Fprintln(w, "Plan")
	}

	_, _ = fmt.Fprintln(w, strings.Repeat("=", 60))

	if r.Target != "" {
		_, _ = fmt.Fprintf(w, "Target version: %s\n", r.Target)
	}

	_, _ = fmt.Fprintln(w)

	for _, e := range r.Entries {
		mark, c := icon(e)
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}

		action := e.Action
		if e.Unchanged {
			action = "unchanged"
		}

		line := fmt.Sprintf("  %s %-14s %s/%s", mark, action, e.Type, e.ID)
		if e.Title != "" {
			line += fmt.Sprintf(" (%s)", e.Title)
		}

		_, _ = c.Fprintln(w, line)

		if len(e.Migrations) > 0 {
			_, _ = fmt.Fprintf(w, "      migrations: %s\n", strings.Join(e.Migrations, ", "))
		}

		if e.Reason != "" {
			_, _ = fmt.Fprintf(w, "      reason: %s\n", e.Reason)
		}

		if e.Diff != "" {
			_, _ = fmt.Fprintln(w)
			WriteDiff(w, &DiffResult{Unified: e.Diff, HasDifferences: true}, useColor)
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %s\n", FormatSummary(r.Summary))
}

// FormatSummary returns a one-line summary such as
// "2 to create, 1 to update, 0 unchanged, 3 skipped, 0 failing".
func FormatSummary(s Summary) string {
	return fmt.Sprintf("%d to create, %d to update, %d unchanged, %d skipped, %d failing",
		s.Create, s.Update, s.Unchanged, s.Skip, s.Fail)
}

// FormatPlanJSON writes the plan as JSON.
func FormatPlanJSON(w io.Writer, r *Result) error {
	data, err := output.SerializeJSON(r, "  ")
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

// FormatPlanYAML writes the plan as YAML.
func FormatPlanYAML(w io.Writer, r *Result) error {
	data, err := output.SerializeYAML(r)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

// FormatPlanCompact writes a one-line summary of the plan.
func FormatPlanCompact(w io.Writer, r *Result) {
	_, _ = fmt.Fprintf(w, "Plan: %s\n", FormatSummary(r.Summary))
}
