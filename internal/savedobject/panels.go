package savedobject

import (
	"fmt"

	"github.com/hupe1980/panelport/internal/maputil"
)

// PanelRef is a positioned reference from a dashboard to a visualization
// or search.
type PanelRef struct {
	ID    string
	Type  Type
	Title string
}

// Panels decodes the dashboard's panel layout. The boolean result is false
// when the dashboard has no layout at all. Non-object entries are dropped.
func (o *Object) Panels() ([]map[string]interface{}, bool, error) {
	v, ok, err := o.EmbeddedJSON(AttrPanels)
	if err != nil || !ok {
		return nil, false, err
	}

	items, ok := v.([]interface{})
	if !ok {
		return nil, false, fmt.Errorf("panel layout of %s is not an array", o.Key())
	}

	panels := make([]map[string]interface{}, 0, len(items))

	for _, item := range items {
		if p, ok := item.(map[string]interface{}); ok {
			panels = append(panels, p)
		}
	}

	return panels, true, nil
}

// SetPanels replaces the dashboard's panel layout.
func (o *Object) SetPanels(panels []map[string]interface{}) error {
	items := make([]interface{}, len(panels))
	for i, p := range panels {
		items[i] = p
	}

	return o.SetEmbeddedJSON(items, AttrPanels)
}

// PanelRef resolves a raw panel into the object it points at. Legacy
// layouts embed id and type; newer ones name an entry of the dashboard's
// references through panelRefName.
func (o *Object) PanelRef(panel map[string]interface{}) PanelRef {
	ref := PanelRef{
		ID:   maputil.GetString(panel, "id"),
		Type: Type(maputil.GetString(panel, "type")),
	}

	if ref.ID == "" {
		if name := maputil.GetString(panel, "panelRefName"); name != "" {
			if r, ok := o.Reference(name); ok {
				ref.ID = r.ID
				if ref.Type == "" {
					ref.Type = r.Type
				}
			}
		}
	}

	ref.Title = maputil.GetString(panel, "title")
	if ref.Title == "" {
		ref.Title = maputil.GetString(panel, "embeddableConfig", "title")
	}

	return ref
}

// PanelRefs returns the references of every panel in layout order.
func (o *Object) PanelRefs() ([]PanelRef, bool, error) {
	panels, ok, err := o.Panels()
	if err != nil || !ok {
		return nil, ok, err
	}

	refs := make([]PanelRef, 0, len(panels))
	for _, p := range panels {
		refs = append(refs, o.PanelRef(p))
	}

	return refs, true, nil
}
