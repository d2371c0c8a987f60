// Package sotest provides an in-memory saved-object store for tests.
package sotest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/panelport/internal/savedobject"
)

// Store is a concurrency-safe in-memory savedobject.Store that records how
// often each object was fetched and can inject failures.
type Store struct {
	mu      sync.Mutex
	objects map[savedobject.Key]*savedobject.Object
	gets    map[savedobject.Key]int
	writes  []savedobject.Key
	nextID  int

	// FailWrites makes Create/Update of the given keys return the error.
	FailWrites map[savedobject.Key]error
	// FailGets makes Get of the given keys return the error.
	FailGets map[savedobject.Key]error
}

// New creates a store seeded with clones of objs.
func New(objs ...*savedobject.Object) *Store {
	s := &Store{
		objects:    make(map[savedobject.Key]*savedobject.Object),
		gets:       make(map[savedobject.Key]int),
		FailWrites: make(map[savedobject.Key]error),
		FailGets:   make(map[savedobject.Key]error),
	}

	for _, o := range objs {
		s.objects[o.Key()] = o.Clone()
	}

	return s
}

// Get implements savedobject.Store.
func (s *Store) Get(_ context.Context, t savedobject.Type, id string) (*savedobject.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := savedobject.Key{Type: t, ID: id}
	s.gets[key]++

	if err := s.FailGets[key]; err != nil {
		return nil, err
	}

	o, ok := s.objects[key]
	if !ok {
		return nil, savedobject.NotFound(t, id)
	}

	return o.Clone(), nil
}

// Create implements savedobject.Store.
func (s *Store) Create(_ context.Context, o *savedobject.Object) (*savedobject.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := o.Clone()
	if stored.ID == "" {
		s.nextID++
		stored.ID = fmt.Sprintf("generated-%d", s.nextID)
	}

	key := stored.Key()
	if err := s.FailWrites[key]; err != nil {
		return nil, err
	}

	if _, exists := s.objects[key]; exists {
		return nil, fmt.Errorf("%s: conflict", key)
	}

	s.objects[key] = stored
	s.writes = append(s.writes, key)

	return stored.Clone(), nil
}

// Update implements savedobject.Store.
func (s *Store) Update(_ context.Context, o *savedobject.Object) (*savedobject.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := o.Key()
	if err := s.FailWrites[key]; err != nil {
		return nil, err
	}

	if _, ok := s.objects[key]; !ok {
		return nil, savedobject.NotFound(o.Type, o.ID)
	}

	updated := o.Clone()
	s.objects[key] = updated
	s.writes = append(s.writes, key)

	return updated.Clone(), nil
}

// Delete implements savedobject.Store.
func (s *Store) Delete(_ context.Context, t savedobject.Type, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := savedobject.Key{Type: t, ID: id}
	if _, ok := s.objects[key]; !ok {
		return savedobject.NotFound(t, id)
	}

	delete(s.objects, key)

	return nil
}

// List implements savedobject.Store. Objects are ordered by key.
func (s *Store) List(_ context.Context, opts savedobject.ListOptions) (*savedobject.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.Page < 1 {
		opts.Page = 1
	}

	if opts.PerPage < 1 {
		opts.PerPage = 20
	}

	keys := make([]savedobject.Key, 0, len(s.objects))

	for k := range s.objects {
		if opts.Type == "" || k.Type == opts.Type {
			keys = append(keys, k)
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	page := &savedobject.Page{Page: opts.Page, PerPage: opts.PerPage, Total: len(keys)}

	start := (opts.Page - 1) * opts.PerPage
	for i := start; i < len(keys) && i < start+opts.PerPage; i++ {
		page.Objects = append(page.Objects, s.objects[keys[i]].Clone())
	}

	return page, nil
}

// Object returns a clone of the stored object, or nil.
func (s *Store) Object(t savedobject.Type, id string) *savedobject.Object {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.objects[savedobject.Key{Type: t, ID: id}].Clone()
}

// Gets returns how often the object was fetched.
func (s *Store) Gets(t savedobject.Type, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gets[savedobject.Key{Type: t, ID: id}]
}

// Writes returns the keys written by Create and Update, in order.
func (s *Store) Writes() []savedobject.Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]savedobject.Key(nil), s.writes...)
}

var _ savedobject.Store = (*Store)(nil)
