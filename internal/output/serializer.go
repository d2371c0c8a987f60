package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Serialization formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Serialize encodes v in the named format.
func Serialize(v interface{}, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return SerializeJSON(v, "  ")
	case FormatYAML:
		return SerializeYAML(v)
	default:
		return nil, fmt.Errorf("unsupported serialization format %q (use json or yaml)", format)
	}
}

// SerializeJSON converts v to indented JSON bytes without HTML escaping.
// Map keys are sorted.
func SerializeJSON(v interface{}, indent string) ([]byte, error) {
	if indent == "" {
		indent = "  "
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("serializing JSON: %w", err)
	}

	return buf.Bytes(), nil
}

// SerializeYAML converts v to YAML bytes with two-space indentation.
// Map keys are sorted.
func SerializeYAML(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("serializing YAML: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("serializing YAML: %w", err)
	}

	return buf.Bytes(), nil
}
