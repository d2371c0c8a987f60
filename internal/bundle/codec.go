package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/hupe1980/panelport/internal/savedobject"
)

// ErrMalformed is returned when a bundle file is not valid JSON or lacks the
// required top-level keys.
var ErrMalformed = errors.New("malformed bundle")

// Top-level keys of the file format.
const (
	KeyDashboard      = "dashboard"
	KeyVisualizations = "visualizations"
	KeySearches       = "searches"
	KeyIndexPatterns  = "index_patterns"
)

// entry is the on-disk form of one object: its id, its attributes under
// "value" and, for newer schemas, its references.
type entry struct {
	ID         string                  `json:"id"`
	Value      map[string]interface{}  `json:"value"`
	References []savedobject.Reference `json:"references,omitempty"`
}

func toEntries(objs []*savedobject.Object) []entry {
	out := make([]entry, 0, len(objs))
	for _, o := range objs {
		out = append(out, toEntry(o))
	}

	return out
}

func toEntry(o *savedobject.Object) entry {
	value := o.Attributes
	if value == nil {
		value = map[string]interface{}{}
	}

	return entry{ID: o.ID, Value: value, References: o.References}
}

// Encode serializes b as indented JSON with sorted keys. Index-pattern-only
// bundles carry only the index_patterns key.
func Encode(b *Bundle) ([]byte, error) {
	doc := map[string]interface{}{
		KeyIndexPatterns: toEntries(b.IndexPatterns),
	}

	if b.Dashboard != nil {
		doc[KeyDashboard] = toEntry(b.Dashboard)
		doc[KeyVisualizations] = toEntries(b.Visualizations)
		doc[KeySearches] = toEntries(b.Searches)
	}

	return marshalDocument(doc)
}

// EncodeWithoutIndexPatterns serializes a dashboard bundle whose index
// patterns are written to separate files.
func EncodeWithoutIndexPatterns(b *Bundle) ([]byte, error) {
	if b.Dashboard == nil {
		return nil, fmt.Errorf("bundle has no dashboard")
	}

	doc := map[string]interface{}{
		KeyDashboard:      toEntry(b.Dashboard),
		KeyVisualizations: toEntries(b.Visualizations),
		KeySearches:       toEntries(b.Searches),
	}

	return marshalDocument(doc)
}

func marshalDocument(doc map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding bundle: %w", err)
	}

	return buf.Bytes(), nil
}

// Decode parses a bundle file. Entries repeating an earlier (type, id) are
// dropped.
func Decode(data []byte) (*Bundle, error) {
	var raw map[string]json.RawMessage
	if err := savedobject.DecodeJSON(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", ErrMalformed, err)
	}

	_, hasDash := raw[KeyDashboard]
	_, hasIPs := raw[KeyIndexPatterns]

	if !hasDash && !hasIPs {
		return nil, fmt.Errorf("%w: neither %q nor %q found", ErrMalformed, KeyDashboard, KeyIndexPatterns)
	}

	b := New()

	if hasDash {
		var dash entry
		if err := savedobject.DecodeJSON(raw[KeyDashboard], &dash); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, KeyDashboard, err)
		}

		if dash.ID == "" {
			return nil, fmt.Errorf("%w: dashboard has no id", ErrMalformed)
		}

		b.Add(fromEntry(savedobject.TypeDashboard, dash))
	}

	lists := []struct {
		key string
		typ savedobject.Type
	}{
		{KeyIndexPatterns, savedobject.TypeIndexPattern},
		{KeySearches, savedobject.TypeSearch},
		{KeyVisualizations, savedobject.TypeVisualization},
	}

	for _, l := range lists {
		data, ok := raw[l.key]
		if !ok {
			continue
		}

		var entries []entry
		if err := savedobject.DecodeJSON(data, &entries); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, l.key, err)
		}

		for i, e := range entries {
			if e.ID == "" {
				return nil, fmt.Errorf("%w: %s[%d] has no id", ErrMalformed, l.key, i)
			}

			b.Add(fromEntry(l.typ, e))
		}
	}

	return b, nil
}

func fromEntry(t savedobject.Type, e entry) *savedobject.Object {
	o := savedobject.New(t, e.ID, e.Value)
	o.References = e.References

	return o
}

// ReadFile reads and decodes the bundle at path.
func ReadFile(fs afero.Fs, path string) (*Bundle, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("bundle file %s does not exist: %w", path, err)
		}

		return nil, fmt.Errorf("reading bundle file %s: %w", path, err)
	}

	b, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return b, nil
}
