package savedobject

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("saved object not found")

// NotFound wraps ErrNotFound with the identity of the missing object.
func NotFound(t Type, id string) error {
	return fmt.Errorf("%s %q: %w", t, id, ErrNotFound)
}

// ListOptions selects one page of saved objects.
type ListOptions struct {
	// Type restricts the listing to one type; empty lists every type.
	Type Type
	// Search is an optional free-text query.
	Search string
	// Page is 1-based.
	Page    int
	PerPage int
}

// Page is one page of a listing.
type Page struct {
	Objects []*Object
	Page    int
	PerPage int
	Total   int
}

// HasMore reports whether pages follow this one.
func (p *Page) HasMore() bool {
	if len(p.Objects) == 0 {
		return false
	}

	return p.Page*p.PerPage < p.Total
}

// Getter fetches single objects.
type Getter interface {
	// Get returns the object or an error matching ErrNotFound.
	Get(ctx context.Context, t Type, id string) (*Object, error)
}

// Store is the remote saved-object collection.
type Store interface {
	Getter

	// Create stores o as a new object. An empty id lets the store choose
	// one.
	Create(ctx context.Context, o *Object) (*Object, error)

	// Update replaces the attributes and references of an existing object.
	// It returns an error matching ErrNotFound when o does not exist.
	Update(ctx context.Context, o *Object) (*Object, error)

	// Delete removes an object.
	Delete(ctx context.Context, t Type, id string) error

	// List returns one page of objects.
	List(ctx context.Context, opts ListOptions) (*Page, error)
}
