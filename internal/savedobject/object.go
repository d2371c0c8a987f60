// Package savedobject models the saved objects exchanged with a dashboard
// platform (dashboards, visualizations, saved searches and index patterns)
// and the accessors for the JSON documents embedded in their attributes.
package savedobject

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/panelport/internal/maputil"
)

// Type identifies the kind of a saved object.
type Type string

// Saved object types handled by panelport.
const (
	TypeDashboard     Type = "dashboard"
	TypeVisualization Type = "visualization"
	TypeSearch        Type = "search"
	TypeIndexPattern  Type = "index-pattern"
)

// Types lists the supported types in dependency order: an object only
// references objects of types that appear before it.
var Types = []Type{TypeIndexPattern, TypeSearch, TypeVisualization, TypeDashboard}

// Valid reports whether t is one of the supported types.
func (t Type) Valid() bool {
	switch t {
	case TypeDashboard, TypeVisualization, TypeSearch, TypeIndexPattern:
		return true
	default:
		return false
	}
}

// ParseType converts s into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown saved object type %q: must be one of dashboard, visualization, search, index-pattern", s)
	}

	return t, nil
}

// Key is the global identity of a saved object.
type Key struct {
	Type Type
	ID   string
}

func (k Key) String() string {
	return string(k.Type) + "/" + k.ID
}

// Reference links an object to another saved object by name.
type Reference struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
	ID   string `json:"id"`
}

// Object is a single saved object. Attributes is the opaque document owned
// by the remote store; panelport only rewrites the parts it migrates.
type Object struct {
	Type       Type                   `json:"type"`
	ID         string                 `json:"id"`
	Attributes map[string]interface{} `json:"attributes"`
	References []Reference            `json:"references,omitempty"`
	UpdatedAt  string                 `json:"updated_at,omitempty"`
}

// New creates an object with the given attributes.
func New(t Type, id string, attrs map[string]interface{}) *Object {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}

	return &Object{Type: t, ID: id, Attributes: attrs}
}

// Key returns the (type, id) identity of o.
func (o *Object) Key() Key {
	return Key{Type: o.Type, ID: o.ID}
}

// Title returns the title attribute, or "" when absent.
func (o *Object) Title() string {
	return maputil.GetString(o.Attributes, AttrTitle)
}

// Updated parses UpdatedAt.
func (o *Object) Updated() (time.Time, bool) {
	if o.UpdatedAt == "" {
		return time.Time{}, false
	}

	ts, err := time.Parse(time.RFC3339Nano, o.UpdatedAt)
	if err != nil {
		return time.Time{}, false
	}

	return ts, true
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}

	c := &Object{
		Type:       o.Type,
		ID:         o.ID,
		Attributes: maputil.DeepCopyMap(o.Attributes),
		UpdatedAt:  o.UpdatedAt,
	}

	if o.Attributes == nil {
		c.Attributes = map[string]interface{}{}
	}

	if len(o.References) > 0 {
		c.References = append([]Reference(nil), o.References...)
	}

	return c
}

// Reference returns the reference registered under name.
func (o *Object) Reference(name string) (Reference, bool) {
	for _, ref := range o.References {
		if ref.Name == name {
			return ref, true
		}
	}

	return Reference{}, false
}

// ErrTrailingData is returned by DecodeJSON when data holds more than one
// JSON value.
var ErrTrailingData = errors.New("unexpected data after top-level value")

// DecodeJSON unmarshals the single JSON value in data into v preserving
// numbers as json.Number so integer attributes survive a decode/encode
// round trip unchanged.
func DecodeJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w at offset %d", ErrTrailingData, dec.InputOffset())
	}

	return nil
}

// encodeCompact marshals v without HTML escaping, the form the platform
// stores in its embedded JSON attributes.
func encodeCompact(v interface{}) (string, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return "", err
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
