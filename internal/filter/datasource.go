package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/panelport/internal/savedobject"
)

// StudyMarker marks the ids of visualizations that belong to a study.
const StudyMarker = "_study_"

// Prefix returns the first underscore-delimited segment of s.
func Prefix(s string) string {
	head, _, _ := strings.Cut(s, "_")
	return head
}

// PrefixToken returns the data-source token of o: the title prefix for
// index patterns and visualizations, the prefix of the resolved index
// pattern id for searches. Other types have no token.
func PrefixToken(o *savedobject.Object) (string, error) {
	switch o.Type {
	case savedobject.TypeIndexPattern, savedobject.TypeVisualization:
		return Prefix(o.Title()), nil
	case savedobject.TypeSearch:
		id, err := savedobject.IndexPatternID(o)
		if err != nil {
			return "", err
		}

		return Prefix(id), nil
	default:
		return "", nil
	}
}

// BelongsTo reports whether o belongs to one of dataSources. An empty list
// matches everything, and so does any dashboard, since dashboards are
// filtered per panel by CleanDashboard.
func BelongsTo(o *savedobject.Object, dataSources []string) bool {
	if len(dataSources) == 0 || o.Type == savedobject.TypeDashboard {
		return true
	}

	token, err := PrefixToken(o)
	if err != nil {
		return false
	}

	return matchesAny(token, dataSources)
}

// IsStudy reports whether id names a study visualization.
func IsStudy(id string) bool {
	return strings.Contains(id, StudyMarker)
}

func matchesAny(token string, dataSources []string) bool {
	if token == "" {
		return false
	}

	for _, ds := range dataSources {
		if strings.EqualFold(token, ds) {
			return true
		}
	}

	return false
}

// DataSourceFilter excludes objects that do not belong to any of the
// configured data sources.
type DataSourceFilter struct {
	dataSources []string
}

// NewDataSourceFilter creates a data-source filter. It returns nil when no
// data source is given, which NewChain skips.
func NewDataSourceFilter(dataSources []string) Filter {
	if len(dataSources) == 0 {
		return nil
	}

	return &DataSourceFilter{dataSources: dataSources}
}

// Apply filters out objects from other data sources.
func (f *DataSourceFilter) Apply(_ context.Context, objects []*savedobject.Object) (*Result, error) {
	r := NewResult()

	for _, o := range objects {
		if o.Type == savedobject.TypeDashboard {
			r.Included = append(r.Included, o)
			continue
		}

		token, err := PrefixToken(o)
		if err != nil {
			r.exclude(o, fmt.Sprintf("no data source: %v", err))
			continue
		}

		if matchesAny(token, f.dataSources) {
			r.Included = append(r.Included, o)
		} else {
			r.exclude(o, fmt.Sprintf("data source %q not in %s", token, strings.Join(f.dataSources, ", ")))
		}
	}

	return r, nil
}

// StudyFilter excludes study visualizations.
type StudyFilter struct{}

// NewStudyFilter creates a study filter. It returns nil when studies are
// included, which NewChain skips.
func NewStudyFilter(includeStudies bool) Filter {
	if includeStudies {
		return nil
	}

	return &StudyFilter{}
}

// Apply filters out visualizations whose id carries the study marker.
func (f *StudyFilter) Apply(_ context.Context, objects []*savedobject.Object) (*Result, error) {
	r := NewResult()

	for _, o := range objects {
		if o.Type == savedobject.TypeVisualization && IsStudy(o.ID) {
			r.exclude(o, "study visualization")
		} else {
			r.Included = append(r.Included, o)
		}
	}

	return r, nil
}
