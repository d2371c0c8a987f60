// Package bundle holds the deduplicated set of a dashboard and every object
// it transitively references, and its JSON file representation.
package bundle

import (
	"github.com/hupe1980/panelport/internal/savedobject"
)

// Bundle is an ordered, deduplicated collection of saved objects. A nil
// Dashboard marks an index-pattern-only bundle.
type Bundle struct {
	Dashboard      *savedobject.Object
	Visualizations []*savedobject.Object
	Searches       []*savedobject.Object
	IndexPatterns  []*savedobject.Object

	seen map[savedobject.Key]struct{}
}

// New creates an empty bundle.
func New() *Bundle {
	return &Bundle{seen: make(map[savedobject.Key]struct{})}
}

// Add appends o to the list matching its type. It returns false, leaving
// the bundle untouched, when an object with the same (type, id) was added
// before or when the type is not bundled. A bundle holds one dashboard.
func (b *Bundle) Add(o *savedobject.Object) bool {
	if b.seen == nil {
		b.reindex()
	}

	key := o.Key()
	if _, dup := b.seen[key]; dup {
		return false
	}

	switch o.Type {
	case savedobject.TypeDashboard:
		if b.Dashboard != nil {
			return false
		}

		b.Dashboard = o
	case savedobject.TypeVisualization:
		b.Visualizations = append(b.Visualizations, o)
	case savedobject.TypeSearch:
		b.Searches = append(b.Searches, o)
	case savedobject.TypeIndexPattern:
		b.IndexPatterns = append(b.IndexPatterns, o)
	default:
		return false
	}

	b.seen[key] = struct{}{}

	return true
}

// Has reports whether an object with key was added.
func (b *Bundle) Has(key savedobject.Key) bool {
	if b.seen == nil {
		b.reindex()
	}

	_, ok := b.seen[key]

	return ok
}

// IndexPatternOnly reports whether the bundle carries no dashboard.
func (b *Bundle) IndexPatternOnly() bool {
	return b.Dashboard == nil
}

// Len returns the number of objects in the bundle.
func (b *Bundle) Len() int {
	n := len(b.Visualizations) + len(b.Searches) + len(b.IndexPatterns)
	if b.Dashboard != nil {
		n++
	}

	return n
}

// Objects returns every object in dependency order: index patterns,
// searches, visualizations, then the dashboard.
func (b *Bundle) Objects() []*savedobject.Object {
	out := make([]*savedobject.Object, 0, b.Len())
	out = append(out, b.IndexPatterns...)
	out = append(out, b.Searches...)
	out = append(out, b.Visualizations...)

	if b.Dashboard != nil {
		out = append(out, b.Dashboard)
	}

	return out
}

// VisualizationTitles maps visualization ids to their titles.
func (b *Bundle) VisualizationTitles() map[string]string {
	titles := make(map[string]string, len(b.Visualizations))
	for _, v := range b.Visualizations {
		titles[v.ID] = v.Title()
	}

	return titles
}

// SplitIndexPatterns returns a copy of b without index patterns plus one
// index-pattern-only bundle per index pattern.
func (b *Bundle) SplitIndexPatterns() (*Bundle, []*Bundle) {
	main := New()
	if b.Dashboard != nil {
		main.Add(b.Dashboard)
	}

	for _, o := range b.Searches {
		main.Add(o)
	}

	for _, o := range b.Visualizations {
		main.Add(o)
	}

	parts := make([]*Bundle, 0, len(b.IndexPatterns))

	for _, ip := range b.IndexPatterns {
		part := New()
		part.Add(ip)
		parts = append(parts, part)
	}

	return main, parts
}

func (b *Bundle) reindex() {
	b.seen = make(map[savedobject.Key]struct{})

	for _, o := range b.Objects() {
		b.seen[o.Key()] = struct{}{}
	}
}
