package plan

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

// DiffResult holds the result of a unified diff computation.
type DiffResult struct {
	Unified        string
	HasDifferences bool
	Hunks          []string
	OldLabel       string
	NewLabel       string
}

// DiffOptions configures diff computation.
type DiffOptions struct {
	OldLabel string
	NewLabel string
	Context  int
}

// DefaultDiffOptions returns sensible default diff options.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		OldLabel: "stored",
		NewLabel: "bundle",
		Context:  3,
	}
}

// ComputeDiff computes a unified diff between two object documents.
func ComputeDiff(oldDoc, newDoc string, opts DiffOptions) (*DiffResult, error) {
	diff := difflib.UnifiedDiff{
		A:        splitLines(oldDoc),
		B:        splitLines(newDoc),
		FromFile: opts.OldLabel,
		ToFile:   opts.NewLabel,
		Context:  opts.Context,
	}

	unified, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	hasDiff := unified != ""

	var hunks []string
	if hasDiff {
		hunks = extractHunks(unified)
	}

	return &DiffResult{
		Unified:        unified,
		HasDifferences: hasDiff,
		Hunks:          hunks,
		OldLabel:       opts.OldLabel,
		NewLabel:       opts.NewLabel,
	}, nil
}

// extractHunks splits unified diff output into individual hunks. The file
// header is kept with the first hunk.
func extractHunks(unified string) []string {
	var (
		hunks   []string
		current strings.Builder
	)

	for _, line := range strings.Split(strings.TrimSuffix(unified, "\n"), "\n") {
		if strings.HasPrefix(line, "@@") && strings.Contains(current.String(), "@@") {
			hunks = append(hunks, current.String())
			current.Reset()
		}

		current.WriteString(line)
		current.WriteString("\n")
	}

	if current.Len() > 0 {
		hunks = append(hunks, current.String())
	}

	return hunks
}

// palette colors diff lines. A disabled palette writes plain text.
type palette struct {
	header, hunk, removed, added *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header:  color.New(color.Bold),
		hunk:    color.New(color.FgCyan),
		removed: color.New(color.FgRed),
		added:   color.New(color.FgGreen),
	}

	for _, c := range []*color.Color{p.header, p.hunk, p.removed, p.added} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// WriteDiff writes a formatted diff to w, colored when useColor is set.
func WriteDiff(w io.Writer, result *DiffResult, useColor bool) {
	if !result.HasDifferences {
		_, _ = fmt.Fprintln(w, "No differences found.")
		return
	}

	p := newPalette(useColor)

	for _, line := range strings.Split(strings.TrimSuffix(result.Unified, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			_, _ = p.header.Fprintln(w, line)
		case strings.HasPrefix(line, "@@"):
			_, _ = p.hunk.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			_, _ = p.removed.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			_, _ = p.added.Fprintln(w, line)
		default:
			_, _ = fmt.Fprintln(w, line)
		}
	}
}

// splitLines splits a string into lines for diff processing.
// Each element includes a trailing newline for difflib compatibility.
func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}

	return strings.SplitAfter(s, "\n")
}
