package filter

import (
	"strings"

	"github.com/hupe1980/panelport/internal/maputil"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// CleanDashboard returns a copy of dash whose panel layout only keeps the
// panels selected for import, plus the references of the removed panels.
//
// A panel survives when it is not a study (unless includeStudies is set)
// and, with an active data-source filter, when its id prefix, the first
// word of its title or the title prefix of its visualization (looked up in
// vizTitles) names one of dataSources. Dashboards without a layout are
// returned unchanged.
func CleanDashboard(
	dash *savedobject.Object,
	dataSources []string,
	includeStudies bool,
	vizTitles map[string]string,
) (*savedobject.Object, []savedobject.PanelRef, error) {
	clean := dash.Clone()

	panels, ok, err := clean.Panels()
	if err != nil || !ok {
		return clean, nil, err
	}

	kept := make([]map[string]interface{}, 0, len(panels))
	droppedRefNames := map[string]bool{}

	var removed []savedobject.PanelRef

	for _, p := range panels {
		ref := clean.PanelRef(p)

		if keepPanel(ref, dataSources, includeStudies, vizTitles) {
			kept = append(kept, p)
			continue
		}

		removed = append(removed, ref)

		if name := maputil.GetString(p, "panelRefName"); name != "" {
			droppedRefNames[name] = true
		}
	}

	if len(removed) == 0 {
		return clean, nil, nil
	}

	if err := clean.SetPanels(kept); err != nil {
		return nil, nil, err
	}

	if len(droppedRefNames) > 0 {
		refs := clean.References[:0]

		for _, r := range clean.References {
			if !droppedRefNames[r.Name] {
				refs = append(refs, r)
			}
		}

		clean.References = refs
	}

	return clean, removed, nil
}

func keepPanel(ref savedobject.PanelRef, dataSources []string, includeStudies bool, vizTitles map[string]string) bool {
	if !includeStudies && IsStudy(ref.ID) {
		return false
	}

	if len(dataSources) == 0 {
		return true
	}

	if matchesAny(Prefix(ref.ID), dataSources) {
		return true
	}

	if words := strings.Fields(ref.Title); len(words) > 0 && matchesAny(strings.ToLower(words[0]), dataSources) {
		return true
	}

	return matchesAny(Prefix(vizTitles[ref.ID]), dataSources)
}
