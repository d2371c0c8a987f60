// Package kibana is an HTTP client for the saved-objects API of a
// Kibana-compatible dashboard platform.
//
// Requests carry the headers the platform requires for write access, are
// rate limited, and are retried with exponential backoff on network
// errors and server-side failures.
package kibana

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hupe1980/panelport/internal/savedobject"
	"github.com/hupe1980/panelport/internal/version"
)

// Default client settings.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 5
	DefaultRetryWait  = time.Second
)

// Observer receives one call per HTTP attempt. Status is 0 when no
// response arrived.
type Observer interface {
	ObserveRequest(method, endpoint string, status int, elapsed time.Duration)
}

// Client talks to one platform instance.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	username string
	password string

	insecure   bool
	timeout    time.Duration
	maxRetries int
	retryWait  time.Duration
	limiter    *rate.Limiter

	userAgent string
	logger    *slog.Logger
	observer  Observer
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth authenticates every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Client) {
		c.insecure = skip
	}
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetry sets how often a failed request is retried and the initial
// wait between attempts.
func WithRetry(maxRetries int, wait time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryWait = wait
	}
}

// WithRateLimit caps the request rate. Zero or less means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}

		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithHTTPClient replaces the underlying HTTP client. TLS and timeout
// options are ignored when it is set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithObserver reports every attempt to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a client for the platform at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid platform URL %q: %w", baseURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid platform URL %q: scheme must be http or https", baseURL)
	}

	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		baseURL:    u,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		retryWait:  DefaultRetryWait,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		userAgent:  version.GetInfo().UserAgent(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.maxRetries < 0 {
		c.maxRetries = 0
	}

	if c.http == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if c.insecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in
		}

		c.http = &http.Client{Transport: transport, Timeout: c.timeout}
	}

	return c, nil
}

// BaseURL returns the platform URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// request describes one logical API call.
type request struct {
	method   string
	path     string
	query    url.Values
	body     interface{}
	endpoint string
}

// do sends req, retrying transient failures, and decodes a successful
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	var payload []byte

	if req.body != nil {
		var err error

		payload, err = json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	ref, err := url.Parse(req.path)
	if err != nil {
		return fmt.Errorf("invalid request path %q: %w", req.path, err)
	}

	ref.RawQuery = req.query.Encode()
	target := c.baseURL.ResolveReference(ref)
	requestID := uuid.NewString()
	logger := c.logger.With(slog.String("method", req.method), slog.String("path", req.path), slog.String("request_id", requestID))

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	b.MaxInterval = 30 * c.retryWait

	attempt := 0

	// last keeps the most recent rejection so it survives retry wrappers.
	var last *StatusError

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		data, err := c.send(ctx, req, target.String(), payload, requestID)
		if se := (*StatusError)(nil); errors.As(err, &se) {
			last = se
		}

		return data, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxRetries)+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Debug("retrying request", slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", err))
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var se *StatusError
		if !errors.As(err, &se) && last != nil {
			se = last
			err = fmt.Errorf("%w: %w", err, last)
		}

		if se != nil {
			se.Attempts = attempt
		}

		if se != nil && !retryable(se.StatusCode) {
			return se
		}

		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if out == nil || len(body) == 0 {
		return nil
	}

	if err := savedobject.DecodeJSON(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s %s response: %w", ErrTransport, req.method, req.path, err)
	}

	return nil
}

// send performs a single attempt. Client errors are permanent.
func (c *Client) send(ctx context.Context, req request, target string, payload []byte, requestID string) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("kbn-xsrf", "true")
	httpReq.Header.Set("X-Opaque-Id", requestID)
	httpReq.Header.Set("User-Agent", c.userAgent)

	if c.username != "" {
		httpReq.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req, 0, start)
		return nil, err
	}
	defer resp.Body.Close()

	c.observe(req, resp.StatusCode, start)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	se := &StatusError{
		Method:     req.method,
		Path:       req.path,
		StatusCode: resp.StatusCode,
		Message:    errorMessage(data),
	}

	if !retryable(resp.StatusCode) {
		return nil, backoff.Permanent(se)
	}

	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		c.logger.Debug("server asked to retry later", slog.Int("seconds", secs))
		return nil, fmt.Errorf("%w: %w", backoff.RetryAfter(secs), se)
	}

	return nil, se
}

func (c *Client) observe(req request, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(req.method, req.endpoint, status, time.Since(start))
	}
}

// errorMessage extracts the message of a platform error document.
func errorMessage(data []byte) string {
	var doc struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return strings.TrimSpace(string(data))
	}

	if doc.Message != "" {
		return doc.Message
	}

	return doc.Error
}
