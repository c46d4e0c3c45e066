package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/roach88/datamod/internal/ir"
)

// DefaultTimeout bounds each HTTP call when no client is supplied.
const DefaultTimeout = 30 * time.Second

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// HTTPResource is a REST client for one collection:
//
//	GET    {base}/{collection}        List
//	POST   {base}/{collection}        Create
//	PUT    {base}/{collection}/{id}   Update
//	DELETE {base}/{collection}/{id}   Delete
type HTTPResource struct {
	base       string
	collection string
	idField    string
	client     *http.Client

	// Last List response, revalidated with If-None-Match.
	mu   sync.Mutex
	etag string
	last ir.IRValue
}

// HTTPOption configures an HTTPResource.
type HTTPOption func(*HTTPResource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(r *HTTPResource) {
		r.client = c
	}
}

// WithIDField names the record field used to build update URLs.
func WithIDField(field string) HTTPOption {
	return func(r *HTTPResource) {
		r.idField = field
	}
}

// NewHTTPResource returns a client for collection under base
// (e.g. "http://localhost:8080/api").
func NewHTTPResource(base, collection string, opts ...HTTPOption) *HTTPResource {
	r := &HTTPResource{
		base:       strings.TrimRight(base, "/"),
		collection: collection,
		idField:    "id",
		client:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List fetches the collection. When the server tagged the previous
// response with an ETag, the request is conditional and a 304 reuses the
// previous body.
func (r *HTTPResource) List(ctx context.Context) (ir.IRValue, error) {
	r.mu.Lock()
	etag, last := r.etag, r.last
	r.mu.Unlock()

	header := http.Header{}
	if etag != "" {
		header.Set("If-None-Match", etag)
	}
	resp, err := r.roundTrip(ctx, http.MethodGet, r.collectionURL(), nil, header)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotModified {
		slog.Debug("http list not modified", "url", r.collectionURL(), "etag", etag)
		return last, nil
	}
	v, err := resp.decode()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.etag, r.last = resp.header.Get("ETag"), v
	r.mu.Unlock()
	return v, nil
}

// Create posts record.
func (r *HTTPResource) Create(ctx context.Context, record ir.IRValue) (ir.IRValue, error) {
	return r.do(ctx, http.MethodPost, r.collectionURL(), record)
}

// Update puts record at its id.
func (r *HTTPResource) Update(ctx context.Context, record ir.IRValue) (ir.IRValue, error) {
	obj, err := asObject(record)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	id, ok := obj.Field(r.idField)
	if !ok {
		return nil, fmt.Errorf("update: record has no %q field", r.idField)
	}
	u, err := r.recordURL(id)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	return r.do(ctx, http.MethodPut, u, record)
}

// Delete removes the record at id.
func (r *HTTPResource) Delete(ctx context.Context, id ir.IRValue) error {
	u, err := r.recordURL(id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	_, err = r.do(ctx, http.MethodDelete, u, nil)
	return err
}

func (r *HTTPResource) collectionURL() string {
	return r.base + "/" + url.PathEscape(r.collection)
}

func (r *HTTPResource) recordURL(id ir.IRValue) (string, error) {
	key, err := ir.KeyOf(id)
	if err != nil {
		return "", err
	}
	return r.collectionURL() + "/" + url.PathEscape(key), nil
}

// do sends one request and decodes the response.
func (r *HTTPResource) do(ctx context.Context, method, target string, body ir.IRValue) (ir.IRValue, error) {
	resp, err := r.roundTrip(ctx, method, target, body, nil)
	if err != nil {
		return nil, err
	}
	return resp.decode()
}

type response struct {
	method string
	target string
	status int
	header http.Header
	data   []byte
}

// decode parses the body. An empty body decodes to nil.
func (resp *response) decode() (ir.IRValue, error) {
	if len(bytes.TrimSpace(resp.data)) == 0 {
		return nil, nil
	}
	v, err := ir.UnmarshalIRValue(resp.data)
	if err != nil {
		return nil, fmt.Errorf("%s %s: decode body: %w", resp.method, resp.target, err)
	}
	return v, nil
}

// roundTrip sends one request. A body of nil sends none. Statuses outside
// 2xx fail with a StatusError, except 304 in answer to If-None-Match.
func (r *HTTPResource) roundTrip(ctx context.Context, method, target string, body ir.IRValue, header http.Header) (*response, error) {
	var reader io.Reader
	if body != nil {
		data, err := ir.MarshalCanonical(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", method, target, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	httpResp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, target, err)
	}

	slog.Debug("http call",
		"method", method,
		"url", target,
		"status", httpResp.StatusCode,
		"duration", time.Since(start),
	)

	notModified := httpResp.StatusCode == http.StatusNotModified && req.Header.Get("If-None-Match") != ""
	if !notModified && (httpResp.StatusCode < 200 || httpResp.StatusCode > 299) {
		return nil, &StatusError{
			Method:     method,
			URL:        target,
			StatusCode: httpResp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	return &response{
		method: method,
		target: target,
		status: httpResp.StatusCode,
		header: httpResp.Header,
		data:   data,
	}, nil
}
