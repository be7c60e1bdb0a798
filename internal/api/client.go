// Package api is the REST gateway to the coaching backend. It is the only
// package that talks to the backend over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Recorder observes every gateway call. Status is 0 when the request never
// completed.
type Recorder interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Client issues JSON requests against the backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	recorder   Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client, which sets no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New creates a Client targeting baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// RemoteRequestError is returned for transport failures and non-2xx
// responses. StatusCode is 0 when the request never completed. Message is
// the server's detail field when present, otherwise the status line.
type RemoteRequestError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteRequestError) Error() string { return e.Message }

func (e *RemoteRequestError) Unwrap() error { return e.Err }

// MalformedResponseError is returned when a 2xx response cannot be decoded or
// fails schema validation.
type MalformedResponseError struct {
	Path string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Path, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// StatusCode extracts the HTTP status from a gateway error, or 0.
func StatusCode(err error) int {
	var re *RemoteRequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// do performs one round trip. body is JSON-encoded when non-nil; the response
// is decoded into out when out is non-nil. A nil out ignores the body, which
// is how 204 responses are consumed.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, path, 0, start)
		c.logger.Debug("backend request failed", "method", method, "path", path, "error", err)
		return &RemoteRequestError{
			Method:  method,
			Path:    path,
			Message: fmt.Sprintf("%s %s: %v", method, path, err),
			Err:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	c.observe(method, path, resp.StatusCode, start)
	c.logger.Debug("backend request", "method", method, "path", path, "status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond))
	if err != nil {
		return &RemoteRequestError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("read response: %v", err),
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteRequestError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorDetail(data, resp.Status),
		}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &MalformedResponseError{Path: path, Err: errors.New("empty body")}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &MalformedResponseError{Path: path, Err: err}
	}
	return nil
}

// errorDetail pulls the "detail" field out of an error body. Structured
// details (validation error lists) are returned as their JSON text.
func errorDetail(body []byte, status string) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 || string(env.Detail) == "null" {
		return status
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		if s == "" {
			return status
		}
		return s
	}
	return string(env.Detail)
}

func (c *Client) observe(method, path string, status int, start time.Time) {
	if c.recorder == nil {
		return
	}
	c.recorder.ObserveRequest(method, routeTemplate(path), status, time.Since(start))
}

var (
	numericSegment = regexp.MustCompile(`^\d+$`)
	dateSegment    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// routeTemplate collapses ids and dates so metric labels stay bounded.
func routeTemplate(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		switch {
		case numericSegment.MatchString(p):
			parts[i] = "{id}"
		case dateSegment.MatchString(p):
			parts[i] = "{date}"
		}
	}
	return strings.Join(parts, "/")
}

type validator interface {
	Validate() error
}

// call decodes a single validated object.
func call[T validator](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return out, err
	}
	if err := out.Validate(); err != nil {
		return out, &MalformedResponseError{Path: path, Err: err}
	}
	return out, nil
}

// callList decodes a JSON array and validates every element.
func callList[T validator](ctx context.Context, c *Client, method, path string, body any) ([]T, error) {
	var out []T
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	for i, v := range out {
		if err := v.Validate(); err != nil {
			return nil, &MalformedResponseError{Path: path, Err: fmt.Errorf("item %d: %w", i, err)}
		}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func checkID(kind string, id int) error {
	if id <= 0 {
		return fmt.Errorf("api: invalid %s id %d", kind, id)
	}
	return nil
}
