package kibana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/hupe1980/panelport/internal/logging"
	"github.com/hupe1980/panelport/internal/savedobject"
)

const (
	savedObjectsPath = "api/saved_objects"
	statusPath       = "api/status"

	endpointSavedObjects = "saved_objects"
	endpointFind         = "find"
	endpointStatus       = "status"
)

// DefaultPerPage is the page size used when none is requested.
const DefaultPerPage = 100

// maxSkippedPages bounds how many consecutive failing pages a listing
// skips before giving up.
const maxSkippedPages = 5

type writeBody struct {
	Attributes map[string]interface{}  `json:"attributes"`
	References []savedobject.Reference `json:"references,omitempty"`
}

type findResponse struct {
	Page         int                   `json:"page"`
	PerPage      int                   `json:"per_page"`
	Total        int                   `json:"total"`
	SavedObjects []*savedobject.Object `json:"saved_objects"`
}

func objectPath(t savedobject.Type, id string) string {
	if id == "" {
		return path.Join(savedObjectsPath, url.PathEscape(string(t)))
	}

	return path.Join(savedObjectsPath, url.PathEscape(string(t)), url.PathEscape(id))
}

// Get implements savedobject.Store.
func (c *Client) Get(ctx context.Context, t savedobject.Type, id string) (*savedobject.Object, error) {
	var o savedobject.Object

	err := c.do(ctx, request{method: http.MethodGet, path: objectPath(t, id), endpoint: endpointSavedObjects}, &o)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, savedobject.NotFound(t, id)
		}

		return nil, err
	}

	return normalize(&o, t, id), nil
}

// Create implements savedobject.Store. Existing objects are not
// overwritten; the platform answers with a conflict instead. A conflict
// after a retried attempt means an earlier attempt was applied even though
// its response was lost, so the stored object is returned.
func (c *Client) Create(ctx context.Context, o *savedobject.Object) (*savedobject.Object, error) {
	var created savedobject.Object

	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     objectPath(o.Type, o.ID),
		query:    url.Values{"overwrite": {"false"}},
		body:     writeBody{Attributes: o.Attributes, References: o.References},
		endpoint: endpointSavedObjects,
	}, &created)
	if err != nil {
		var se *StatusError
		if o.ID != "" && errors.As(err, &se) && se.StatusCode == http.StatusConflict && se.Attempts > 1 {
			c.logger.Debug("create applied by an earlier attempt", logging.Object(o.Key()))
			return c.Get(ctx, o.Type, o.ID)
		}

		return nil, err
	}

	c.logger.Debug("saved object created", logging.Object(savedobject.Key{Type: o.Type, ID: created.ID}))

	return normalize(&created, o.Type, o.ID), nil
}

// Update implements savedobject.Store.
func (c *Client) Update(ctx context.Context, o *savedobject.Object) (*savedobject.Object, error) {
	var updated savedobject.Object

	err := c.do(ctx, request{
		method:   http.MethodPut,
		path:     objectPath(o.Type, o.ID),
		body:     writeBody{Attributes: o.Attributes, References: o.References},
		endpoint: endpointSavedObjects,
	}, &updated)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, savedobject.NotFound(o.Type, o.ID)
		}

		return nil, err
	}

	c.logger.Debug("saved object updated", logging.Object(o.Key()))

	return normalize(&updated, o.Type, o.ID), nil
}

// Delete implements savedobject.Store.
func (c *Client) Delete(ctx context.Context, t savedobject.Type, id string) error {
	err := c.do(ctx, request{method: http.MethodDelete, path: objectPath(t, id), endpoint: endpointSavedObjects}, nil)
	if IsStatus(err, http.StatusNotFound) {
		return savedobject.NotFound(t, id)
	}

	return err
}

// List implements savedobject.Store. An empty type lists every supported
// type.
func (c *Client) List(ctx context.Context, opts savedobject.ListOptions) (*savedobject.Page, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}

	if opts.PerPage < 1 {
		opts.PerPage = DefaultPerPage
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(opts.Page))
	q.Set("per_page", strconv.Itoa(opts.PerPage))

	if opts.Search != "" {
		q.Set("search", opts.Search)
	}

	if opts.Type != "" {
		q.Add("type", string(opts.Type))
	} else {
		for _, t := range savedobject.Types {
			q.Add("type", string(t))
		}
	}

	var resp findResponse

	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     path.Join(savedObjectsPath, "_find"),
		query:    q,
		endpoint: endpointFind,
	}, &resp)
	if err != nil {
		return nil, err
	}

	page := &savedobject.Page{
		Objects: resp.SavedObjects,
		Page:    resp.Page,
		PerPage: resp.PerPage,
		Total:   resp.Total,
	}

	if page.Page == 0 {
		page.Page = opts.Page
	}

	if page.PerPage == 0 {
		page.PerPage = opts.PerPage
	}

	return page, nil
}

// ListAll walks every page of a listing and calls fn for each. Pages the
// server fails to produce (HTTP 500) are skipped with a warning, up to a
// small number in a row.
func (c *Client) ListAll(ctx context.Context, opts savedobject.ListOptions, fn func(*savedobject.Page) error) error {
	if opts.Page < 1 {
		opts.Page = 1
	}

	skipped := 0

	for {
		page, err := c.List(ctx, opts)
		if err != nil {
			if !IsStatus(err, http.StatusInternalServerError) || skipped >= maxSkippedPages {
				return err
			}

			c.logger.Warn("skipping page the server failed to produce", slog.Int("page", opts.Page), slog.Any("error", err))

			skipped++
			opts.Page++

			continue
		}

		skipped = 0

		if len(page.Objects) == 0 {
			return nil
		}

		if err := fn(page); err != nil {
			return err
		}

		if !page.HasMore() {
			return nil
		}

		opts.Page = page.Page + 1
	}
}

// Version returns the platform version reported by the status endpoint.
func (c *Client) Version(ctx context.Context) (string, error) {
	var status struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}

	if err := c.do(ctx, request{method: http.MethodGet, path: statusPath, endpoint: endpointStatus}, &status); err != nil {
		return "", fmt.Errorf("reading platform status: %w", err)
	}

	if status.Version.Number == "" {
		return "", errors.New("platform status carries no version number")
	}

	return status.Version.Number, nil
}

// normalize fills identity fields the platform omits from some
// responses.
func normalize(o *savedobject.Object, t savedobject.Type, id string) *savedobject.Object {
	if o.Type == "" {
		o.Type = t
	}

	if o.ID == "" {
		o.ID = id
	}

	if o.Attributes == nil {
		o.Attributes = map[string]interface{}{}
	}

	return o
}

var _ savedobject.Store = (*Client)(nil)
