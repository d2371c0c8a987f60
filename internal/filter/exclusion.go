package filter

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/hupe1980/panelport/internal/savedobject"
)

// TypeFilter excludes objects whose type matches any of the specified types.
type TypeFilter struct {
	types map[savedobject.Type]bool
}

// NewTypeFilter creates a filter that excludes objects of the given types.
// Matching is case-insensitive; unknown type names are rejected.
func NewTypeFilter(types []string) (*TypeFilter, error) {
	m := make(map[savedobject.Type]bool, len(types))

	for _, s := range types {
		t, err := savedobject.ParseType(strings.ToLower(strings.TrimSpace(s)))
		if err != nil {
			return nil, err
		}

		m[t] = true
	}

	return &TypeFilter{types: m}, nil
}

// Apply filters out objects whose type matches.
func (f *TypeFilter) Apply(_ context.Context, objects []*savedobject.Object) (*Result, error) {
	r := NewResult()

	for _, o := range objects {
		if f.types[o.Type] {
			r.exclude(o, fmt.Sprintf("excluded by type: %s", o.Type))
		} else {
			r.Included = append(r.Included, o)
		}
	}

	return r, nil
}

// IDFilter excludes objects whose id matches any of the given shell
// patterns (see path.Match).
type IDFilter struct {
	patterns []string
}

// NewIDFilter creates a filter that excludes objects by id pattern.
func NewIDFilter(patterns []string) (*IDFilter, error) {
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid id pattern %q: %w", p, err)
		}
	}

	return &IDFilter{patterns: patterns}, nil
}

// Apply filters out objects whose id matches a pattern.
func (f *IDFilter) Apply(_ context.Context, objects []*savedobject.Object) (*Result, error) {
	r := NewResult()

	for _, o := range objects {
		if p, ok := f.match(o.ID); ok {
			r.exclude(o, fmt.Sprintf("excluded by id pattern: %s", p))
		} else {
			r.Included = append(r.Included, o)
		}
	}

	return r, nil
}

func (f *IDFilter) match(id string) (string, bool) {
	for _, p := range f.patterns {
		if ok, _ := path.Match(p, id); ok {
			return p, true
		}
	}

	return "", false
}
