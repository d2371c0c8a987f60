package savedobject

import (
	"fmt"
	"strings"

	"github.com/hupe1980/panelport/internal/maputil"
)

// Attribute names used by the migration pipeline.
const (
	AttrTitle              = "title"
	AttrPanels             = "panelsJSON"
	AttrVisState           = "visState"
	AttrSavedSearchID      = "savedSearchId"
	AttrSavedSearchRefName = "savedSearchRefName"
	AttrMeta               = "kibanaSavedObjectMeta"
	AttrSearchSource       = "searchSourceJSON"

	// AttrReleaseDate is the deprecated timestamp marker. Platforms with a
	// strict attribute mapping reject it, so it is stripped before writes.
	AttrReleaseDate = "release_date"
)

// EmbeddedJSON decodes the attribute at path, which holds a JSON document
// serialized as a string. The boolean result is false when the attribute
// is missing or empty.
func (o *Object) EmbeddedJSON(path ...string) (interface{}, bool, error) {
	raw := maputil.GetString(o.Attributes, path...)
	if raw == "" {
		return nil, false, nil
	}

	var v interface{}
	if err := DecodeJSON([]byte(raw), &v); err != nil {
		return nil, false, fmt.Errorf("decoding %s of %s: %w", strings.Join(path, "."), o.Key(), err)
	}

	return v, true, nil
}

// SetEmbeddedJSON serializes v and stores it as a string at path, creating
// intermediate maps as needed.
func (o *Object) SetEmbeddedJSON(v interface{}, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("empty attribute path")
	}

	s, err := encodeCompact(v)
	if err != nil {
		return fmt.Errorf("encoding %s of %s: %w", strings.Join(path, "."), o.Key(), err)
	}

	if o.Attributes == nil {
		o.Attributes = map[string]interface{}{}
	}

	node := o.Attributes

	for _, key := range path[:len(path)-1] {
		next, ok := node[key].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			node[key] = next
		}

		node = next
	}

	node[path[len(path)-1]] = s

	return nil
}

// SearchSource returns the decoded kibanaSavedObjectMeta.searchSourceJSON
// document.
func (o *Object) SearchSource() (map[string]interface{}, bool, error) {
	v, ok, err := o.EmbeddedJSON(AttrMeta, AttrSearchSource)
	if err != nil || !ok {
		return nil, false, err
	}

	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false, fmt.Errorf("search source of %s is not an object", o.Key())
	}

	return m, true, nil
}

// SetSearchSource replaces the search source document.
func (o *Object) SetSearchSource(src map[string]interface{}) error {
	return o.SetEmbeddedJSON(src, AttrMeta, AttrSearchSource)
}

// IndexPatternID extracts the index pattern referenced by the object's
// search source. A top-level "index" field wins; older schemas only carry
// the id inside the first filter's meta.index. Newer schemas replace the
// id with an indexRefName pointing into the references list.
func IndexPatternID(o *Object) (string, error) {
	src, ok, err := o.SearchSource()
	if err != nil || !ok {
		return "", err
	}

	if idx, ok := src["index"].(string); ok && idx != "" {
		return idx, nil
	}

	if refName, ok := src["indexRefName"].(string); ok && refName != "" {
		if ref, found := o.Reference(refName); found {
			return ref.ID, nil
		}
	}

	filters, _ := src["filter"].([]interface{})
	if len(filters) == 0 {
		return "", nil
	}

	first, _ := filters[0].(map[string]interface{})

	if idx := maputil.GetString(first, "meta", "index"); idx != "" {
		return idx, nil
	}

	if refName := maputil.GetString(first, "meta", "indexRefName"); refName != "" {
		if ref, found := o.Reference(refName); found {
			return ref.ID, nil
		}
	}

	return "", nil
}

// SavedSearchID returns the saved search a visualization is built on.
func SavedSearchID(o *Object) string {
	if id := maputil.GetString(o.Attributes, AttrSavedSearchID); id != "" {
		return id
	}

	if refName := maputil.GetString(o.Attributes, AttrSavedSearchRefName); refName != "" {
		if ref, ok := o.Reference(refName); ok {
			return ref.ID
		}
	}

	return ""
}
