// Package maputil provides deep-copy and path-lookup helpers for the loosely
// typed attribute documents carried by saved objects.
package maputil

import (
	"encoding/json"
	"math"
)

// DeepCopyMap performs a deep copy of a map[string]interface{}.
func DeepCopyMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}

	dst := make(map[string]interface{}, len(src))

	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}

	return dst
}

// DeepCopySlice performs a deep copy of a []interface{}.
func DeepCopySlice(src []interface{}) []interface{} {
	if src == nil {
		return nil
	}

	dst := make([]interface{}, len(src))

	for i, v := range src {
		dst[i] = deepCopyValue(v)
	}

	return dst
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return DeepCopyMap(val)
	case []interface{}:
		return DeepCopySlice(val)
	default:
		return v
	}
}

// Get walks m along path and returns the value found at its end.
func Get(m map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = m

	for _, key := range path {
		node, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}

		cur, ok = node[key]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

// GetString returns the string at path, or "" when the path is missing or
// holds a non-string value.
func GetString(m map[string]interface{}, path ...string) string {
	v, ok := Get(m, path...)
	if !ok {
		return ""
	}

	s, _ := v.(string)

	return s
}

// GetMap returns the nested map at path.
func GetMap(m map[string]interface{}, path ...string) (map[string]interface{}, bool) {
	v, ok := Get(m, path...)
	if !ok {
		return nil, false
	}

	nested, ok := v.(map[string]interface{})

	return nested, ok
}

// AsInt64 reports whether v is an integral number and returns it. Numbers
// decoded from JSON arrive as float64 or json.Number depending on the
// decoder, so both are accepted alongside native integer types.
func AsInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}

		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}

		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}

		return int64(f), true
	default:
		return 0, false
	}
}
