package plan

import (
	"fmt"
	"strings"

	"github.com/hupe1980/panelport/internal/maputil"
	"github.com/hupe1980/panelport/internal/output"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// embedded names the attributes that hold serialized JSON besides the
// *JSON-suffixed ones.
var embedded = map[string]bool{
	savedobject.AttrVisState: true,
	"fields":                 true,
	"fieldFormatMap":         true,
	"sourceFilters":          true,
	"typeMeta":               true,
}

// Document renders o as indented JSON with sorted keys. Embedded JSON
// attributes are decoded in place so a diff shows the changed fields
// instead of a single rewritten line. A nil object renders as "".
func Document(o *savedobject.Object) (string, error) {
	if o == nil {
		return "", nil
	}

	doc := map[string]interface{}{
		"type":       string(o.Type),
		"id":         o.ID,
		"attributes": expand(maputil.DeepCopyMap(o.Attributes)),
	}

	if len(o.References) > 0 {
		refs := make([]interface{}, 0, len(o.References))
		for _, r := range o.References {
			refs = append(refs, map[string]interface{}{"name": r.Name, "type": string(r.Type), "id": r.ID})
		}

		doc["references"] = refs
	}

	data, err := output.SerializeJSON(doc, "  ")
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", o.Key(), err)
	}

	return string(data), nil
}

func expand(m map[string]interface{}) map[string]interface{} {
	for k, v := range m {
		switch val := v.(type) {
		case map[string]interface{}:
			m[k] = expand(val)
		case string:
			if !embedded[k] && !strings.HasSuffix(k, "JSON") {
				continue
			}

			var decoded interface{}
			if err := savedobject.DecodeJSON([]byte(val), &decoded); err == nil {
				m[k] = decoded
			}
		}
	}

	return m
}
