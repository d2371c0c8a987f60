package compat

import (
	"fmt"

	"github.com/hupe1980/panelport/internal/maputil"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// BoolFilters rewrites integer phrase-match values 1 and 0 in a
// dashboard's filters to true and false.
type BoolFilters struct{}

// Name implements Step.
func (BoolFilters) Name() string { return "bool-filters" }

// Matches implements Step.
func (BoolFilters) Matches(t savedobject.Type) bool { return t == savedobject.TypeDashboard }

// Apply implements Step.
func (BoolFilters) Apply(o *savedobject.Object) (bool, error) {
	src, ok, err := o.SearchSource()
	if err != nil || !ok {
		return false, err
	}

	filters, _ := src["filter"].([]interface{})
	changed := false

	for _, f := range filters {
		fm, _ := f.(map[string]interface{})

		match, ok := maputil.GetMap(fm, "query", "match")
		if !ok {
			continue
		}

		for _, m := range match {
			phrase, ok := m.(map[string]interface{})
			if !ok || phrase["type"] != "phrase" {
				continue
			}

			n, ok := maputil.AsInt64(phrase["query"])
			if !ok || (n != 0 && n != 1) {
				continue
			}

			phrase["query"] = n == 1
			changed = true
		}
	}

	if !changed {
		return false, nil
	}

	return true, o.SetSearchSource(src)
}

// PanelHeights raises legacy grid panels of height 1 to height 2. Layouts
// with any panel lacking size_y use the newer grid and are left alone.
type PanelHeights struct{}

// Name implements Step.
func (PanelHeights) Name() string { return "panel-heights" }

// Matches implements Step.
func (PanelHeights) Matches(t savedobject.Type) bool { return t == savedobject.TypeDashboard }

// Apply implements Step.
func (PanelHeights) Apply(o *savedobject.Object) (bool, error) {
	panels, ok, err := o.Panels()
	if err != nil || !ok {
		return false, err
	}

	for _, p := range panels {
		if _, legacy := p["size_y"]; !legacy {
			return false, nil
		}
	}

	changed := false

	for _, p := range panels {
		if h, ok := maputil.AsInt64(p["size_y"]); ok && h == 1 {
			p["size_y"] = 2
			changed = true
		}
	}

	if !changed {
		return false, nil
	}

	return true, o.SetPanels(panels)
}

// MetricStyle adds the nested metric style object newer renderers expect
// to metric visualizations that only carry a legacy fontSize.
type MetricStyle struct{}

// Name implements Step.
func (MetricStyle) Name() string { return "metric-style" }

// Matches implements Step.
func (MetricStyle) Matches(t savedobject.Type) bool { return t == savedobject.TypeVisualization }

// Apply implements Step.
func (MetricStyle) Apply(o *savedobject.Object) (bool, error) {
	v, ok, err := o.EmbeddedJSON(savedobject.AttrVisState)
	if err != nil || !ok {
		return false, err
	}

	state, ok := v.(map[string]interface{})
	if !ok {
		return false, fmt.Errorf("visState is not an object")
	}

	if state["type"] != "metric" {
		return false, nil
	}

	params, ok := state["params"].(map[string]interface{})
	if !ok {
		return false, nil
	}

	fontSize, hasFont := params["fontSize"]
	if _, migrated := params["metric"]; !hasFont || migrated {
		return false, nil
	}

	params["metric"] = defaultMetricStyle(fontSize)

	return true, o.SetEmbeddedJSON(state, savedobject.AttrVisState)
}

func defaultMetricStyle(fontSize interface{}) map[string]interface{} {
	return map[string]interface{}{
		"percentageMode":  false,
		"useRanges":       false,
		"colorSchema":     "Green to Red",
		"metricColorMode": "None",
		"colorsRange": []interface{}{
			map[string]interface{}{"from": 0, "to": 10000},
		},
		"labels":       map[string]interface{}{"show": true},
		"invertColors": false,
		"style": map[string]interface{}{
			"bgFill":     "#000",
			"bgColor":    false,
			"labelColor": false,
			"subText":    "",
			"fontSize":   fontSize,
		},
	}
}
