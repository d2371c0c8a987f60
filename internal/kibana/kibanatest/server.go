// Package kibanatest runs an in-memory saved-objects API over HTTP for
// tests of code that talks to a real kibana.Client.
package kibanatest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hupe1980/panelport/internal/savedobject"
)

const prefix = "/api/saved_objects/"

// Server is a fake platform backed by a map.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	objects map[savedobject.Key]*savedobject.Object
	version string
	fail    map[savedobject.Key]int
	writes  []string
}

// New starts a server seeded with clones of objs and reporting version.
// It is closed when the test ends.
func New(t testing.TB, version string, objs ...*savedobject.Object) *Server {
	t.Helper()

	s := &Server{
		objects: make(map[savedobject.Key]*savedobject.Object),
		version: version,
		fail:    make(map[savedobject.Key]int),
	}

	for _, o := range objs {
		s.objects[o.Key()] = o.Clone()
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	return s
}

// FailWrites makes writes of key answer with status.
func (s *Server) FailWrites(key savedobject.Key, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fail[key] = status
}

// Object returns a clone of the stored object, or nil.
func (s *Server) Object(t savedobject.Type, id string) *savedobject.Object {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.objects[savedobject.Key{Type: t, ID: id}].Clone()
}

// Writes lists "METHOD type/id" for every successful write in order.
func (s *Server) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.writes...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.URL.Path == "/api/status":
		s.reply(w, http.StatusOK, map[string]interface{}{
			"version": map[string]string{"number": s.version},
		})
	case r.URL.Path == prefix+"_find":
		s.find(w, r)
	case strings.HasPrefix(r.URL.Path, prefix):
		key, ok := parseKey(r.URL.EscapedPath())
		if !ok {
			s.replyError(w, http.StatusBadRequest, "bad saved object path")
			return
		}

		s.object(w, r, key)
	default:
		s.replyError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) object(w http.ResponseWriter, r *http.Request, key savedobject.Key) {
	stored, exists := s.objects[key]

	switch r.Method {
	case http.MethodGet:
		if !exists {
			s.replyError(w, http.StatusNotFound, "Saved object ["+key.String()+"] not found")
			return
		}

		s.reply(w, http.StatusOK, stored)
	case http.MethodPost, http.MethodPut:
		if code := s.fail[key]; code != 0 {
			s.replyError(w, code, "write rejected")
			return
		}

		if r.Method == http.MethodPost && exists {
			s.replyError(w, http.StatusConflict, "Saved object ["+key.String()+"] conflict")
			return
		}

		if r.Method == http.MethodPut && !exists {
			s.replyError(w, http.StatusNotFound, "Saved object ["+key.String()+"] not found")
			return
		}

		var body struct {
			Attributes map[string]interface{}  `json:"attributes"`
			References []savedobject.Reference `json:"references"`
		}

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.replyError(w, http.StatusBadRequest, err.Error())
			return
		}

		o := savedobject.New(key.Type, key.ID, body.Attributes)
		o.References = body.References
		s.objects[key] = o
		s.writes = append(s.writes, r.Method+" "+key.String())

		s.reply(w, http.StatusOK, o)
	case http.MethodDelete:
		if !exists {
			s.replyError(w, http.StatusNotFound, "Saved object ["+key.String()+"] not found")
			return
		}

		delete(s.objects, key)
		s.writes = append(s.writes, r.Method+" "+key.String())
		s.reply(w, http.StatusOK, map[string]interface{}{})
	default:
		s.replyError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) find(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	types := make(map[string]bool)
	for _, t := range q["type"] {
		types[t] = true
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = 20
	}

	var matched []*savedobject.Object

	for _, o := range s.objects {
		if len(types) == 0 || types[string(o.Type)] {
			matched = append(matched, o)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Key().String() < matched[j].Key().String()
	})

	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}

	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}

	s.reply(w, http.StatusOK, map[string]interface{}{
		"page":          page,
		"per_page":      perPage,
		"total":         len(matched),
		"saved_objects": matched[start:end],
	})
}

func (s *Server) reply(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) replyError(w http.ResponseWriter, status int, msg string) {
	s.reply(w, status, map[string]interface{}{
		"statusCode": status,
		"error":      http.StatusText(status),
		"message":    msg,
	})
}

// parseKey splits an escaped /api/saved_objects/{type}/{id} path.
func parseKey(escaped string) (savedobject.Key, bool) {
	parts := strings.SplitN(strings.TrimPrefix(escaped, prefix), "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return savedobject.Key{}, false
	}

	t, err := url.PathUnescape(parts[0])
	if err != nil {
		return savedobject.Key{}, false
	}

	id, err := url.PathUnescape(parts[1])
	if err != nil {
		return savedobject.Key{}, false
	}

	return savedobject.Key{Type: savedobject.Type(t), ID: id}, true
}
