package filter

import (
	"context"

	"github.com/hupe1980/panelport/internal/savedobject"
)

// Filter is the interface for all saved-object filters.
// Filters are stateless: they receive a set of objects and return a result
// without modifying the objects.
type Filter interface {
	// Apply runs the filter on the given objects and returns a result.
	Apply(ctx context.Context, objects []*savedobject.Object) (*Result, error)
}

// ExcludedObject records an object that was excluded by a filter.
type ExcludedObject struct {
	// Object is the excluded object.
	Object *savedobject.Object
	// Reason is a human-readable explanation for the exclusion.
	Reason string
}

// Result holds the outcome of a filter application.
type Result struct {
	// Included are the objects that passed the filter.
	Included []*savedobject.Object
	// Excluded are the objects removed by the filter.
	Excluded []ExcludedObject
}

// NewResult creates an empty Result.
func NewResult() *Result {
	return &Result{}
}

func (r *Result) exclude(o *savedobject.Object, reason string) {
	r.Excluded = append(r.Excluded, ExcludedObject{Object: o, Reason: reason})
}

// Chain applies multiple filters sequentially, passing the included
// objects from each filter as input to the next.
type Chain struct {
	filters []Filter
}

// NewChain creates a filter chain from the given filters. Nil filters are
// skipped, so optional filters can be passed unconditionally.
func NewChain(filters ...Filter) *Chain {
	c := &Chain{}

	for _, f := range filters {
		if f != nil {
			c.filters = append(c.filters, f)
		}
	}

	return c
}

// Len returns the number of filters in the chain.
func (c *Chain) Len() int {
	return len(c.filters)
}

// Apply runs all filters in order, accumulating excluded objects.
func (c *Chain) Apply(ctx context.Context, objects []*savedobject.Object) (*Result, error) {
	combined := NewResult()
	current := objects

	for _, f := range c.filters {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		r, err := f.Apply(ctx, current)
		if err != nil {
			return nil, err
		}

		current = r.Included

		combined.Excluded = append(combined.Excluded, r.Excluded...)
	}

	combined.Included = current

	return combined, nil
}
