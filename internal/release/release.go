// Package release compares the release markers stamped into saved objects
// to decide whether an incoming object supersedes the one already stored.
//
// A marker is either a monotonically increasing integer or an ISO-8601
// timestamp. Markers of the same kind compare naturally; anything else
// falls back to lexical comparison.
package release

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/panelport/internal/maputil"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// DefaultKey is the attribute holding the marker.
const DefaultKey = "version"

var (
	// ErrMissingMarker is returned when the incoming object carries no
	// release marker.
	ErrMissingMarker = errors.New("missing release marker")

	// ErrIncomparable is returned when one marker is a counter and the
	// other a timestamp.
	ErrIncomparable = errors.New("incomparable release markers")
)

// Kind is the representation of a marker.
type Kind int

// Marker kinds.
const (
	KindCounter Kind = iota
	KindTimestamp
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindTimestamp:
		return "timestamp"
	default:
		return "string"
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Marker is a parsed release marker.
type Marker struct {
	Kind Kind

	counter int64
	ts      time.Time
	raw     string
}

func (m Marker) String() string {
	return m.raw
}

// Parse converts an attribute value into a marker. Nil and empty strings
// are not markers.
func Parse(v interface{}) (Marker, bool) {
	if n, ok := maputil.AsInt64(v); ok {
		return Marker{Kind: KindCounter, counter: n, raw: strconv.FormatInt(n, 10)}, true
	}

	s, ok := v.(string)
	if !ok {
		if v == nil {
			return Marker{}, false
		}

		s = fmt.Sprint(v)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return Marker{}, false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Marker{Kind: KindCounter, counter: n, raw: s}, true
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return Marker{Kind: KindTimestamp, ts: ts, raw: s}, true
		}
	}

	return Marker{Kind: KindString, raw: s}, true
}

// Of returns the marker stored under key in o's attributes.
func Of(o *savedobject.Object, key string) (Marker, bool) {
	if o == nil {
		return Marker{}, false
	}

	v, ok := maputil.Get(o.Attributes, key)
	if !ok {
		return Marker{}, false
	}

	return Parse(v)
}

// Compare returns -1, 0 or +1 as a is older than, equal to or newer than b.
func Compare(a, b Marker) (int, error) {
	switch {
	case a.Kind == KindCounter && b.Kind == KindCounter:
		return cmpInt(a.counter, b.counter), nil
	case a.Kind == KindTimestamp && b.Kind == KindTimestamp:
		return a.ts.Compare(b.ts), nil
	case a.Kind == KindString || b.Kind == KindString:
		return strings.Compare(a.raw, b.raw), nil
	default:
		return 0, fmt.Errorf("%w: %s %q vs %s %q", ErrIncomparable, a.Kind, a.raw, b.Kind, b.raw)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsNewer reports whether incoming should replace current. A missing or
// unmarked current object is always superseded; otherwise the incoming
// marker must be strictly greater, so the stored object wins ties.
func IsNewer(current, incoming *savedobject.Object, key string) (bool, error) {
	if incoming == nil {
		return false, fmt.Errorf("no incoming object: %w under %q", ErrMissingMarker, key)
	}

	in, ok := Of(incoming, key)
	if !ok {
		return false, fmt.Errorf("%s: %w under %q", incoming.Key(), ErrMissingMarker, key)
	}

	cur, ok := Of(current, key)
	if !ok {
		return true, nil
	}

	c, err := Compare(in, cur)
	if err != nil {
		return false, fmt.Errorf("%s: %w", incoming.Key(), err)
	}

	return c > 0, nil
}

// Stamp writes a fresh counter marker under key: now in unix milliseconds,
// or one more than the marker already present if that is larger.
func Stamp(o *savedobject.Object, key string, now time.Time) int64 {
	next := now.UnixMilli()

	if m, ok := Of(o, key); ok && m.Kind == KindCounter && m.counter >= next {
		next = m.counter + 1
	}

	if o.Attributes == nil {
		o.Attributes = map[string]interface{}{}
	}

	o.Attributes[key] = next

	return next
}
