package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fulfilhub/dashboard/internal/shared"
)

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

type settings struct {
	withAuth bool
	blob     bool
	headers  http.Header
}

// Option adjusts a request descriptor at construction time.
type Option func(*settings)

// WithoutAuth skips the bearer header. Requests are authenticated by default.
func WithoutAuth() Option {
	return func(s *settings) {
		s.withAuth = false
	}
}

// WithHeader adds a fixed header to every call.
func WithHeader(key, value string) Option {
	return func(s *settings) {
		s.headers.Add(key, value)
	}
}

// WithBlobResponse asks for the body as opaque bytes instead of parsed JSON.
// Only meaningful for Request[File].
func WithBlobResponse() Option {
	return func(s *settings) {
		s.blob = true
	}
}

// Request describes one backend operation. It is built once and reused; values
// are immutable after construction.
type Request[T any] struct {
	endpoint  string
	method    string
	settings  settings
	transform func(json.RawMessage) (T, error)
}

// NewRequest builds a descriptor for endpoint and method. The endpoint may contain
// {name} placeholders that are filled from Call.Path.
func NewRequest[T any](endpoint, method string, opts ...Option) Request[T] {
	s := settings{withAuth: true, headers: http.Header{}}
	for _, opt := range opts {
		opt(&s)
	}
	return Request[T]{endpoint: endpoint, method: method, settings: s}
}

// WithTransform returns a copy of r whose result is produced by fn from the raw body.
func (r Request[T]) WithTransform(fn func(json.RawMessage) (T, error)) Request[T] {
	r.transform = fn
	return r
}

// Endpoint returns the endpoint template.
func (r Request[T]) Endpoint() string { return r.endpoint }

// Method returns the HTTP method.
func (r Request[T]) Method() string { return r.method }

// WithAuth reports whether the bearer header is attached.
func (r Request[T]) WithAuth() bool { return r.settings.withAuth }

// Call carries the per-invocation inputs of a request.
type Call struct {
	Path  map[string]string
	Query Params
	Body  any
}

// Do issues the request with sess supplying the bearer token. Transport and status
// failures are returned to the caller as *TransportError and *ResponseError.
func (r Request[T]) Do(ctx context.Context, c *Client, sess shared.Session, call Call) (T, error) {
	var zero T
	method := strings.ToUpper(strings.TrimSpace(r.method))
	if _, ok := allowedMethods[method]; !ok {
		return zero, fmt.Errorf("%w: %q", ErrInvalidMethod, r.method)
	}
	if r.settings.withAuth && sess.Token == "" {
		return zero, ErrMissingToken
	}
	path, err := expandPath(r.endpoint, call.Path)
	if err != nil {
		return zero, err
	}
	target := c.baseURL + path
	if q := call.Query.Encode(); q != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + q
	}

	header := http.Header{}
	if r.settings.blob {
		header.Set("Accept", "*/*")
	} else {
		header.Set("Accept", "application/json")
	}
	if r.settings.withAuth {
		header.Set("Authorization", "Bearer "+sess.Token)
	}
	for key, values := range r.settings.headers {
		header[key] = append([]string(nil), values...)
	}

	var body []byte
	if hasBody(method) && call.Body != nil {
		encoded, contentType, err := encodeBody(call.Body)
		if err != nil {
			return zero, fmt.Errorf("api: encode body: %w", err)
		}
		body = encoded
		header.Set("Content-Type", contentType)
	}

	resp, err := c.send(ctx, method, target, header, body)
	if err != nil {
		return zero, err
	}
	if resp.status >= http.StatusBadRequest {
		return zero, &ResponseError{Method: method, URL: target, Status: resp.status, Body: resp.body}
	}
	return r.decode(resp)
}

func (r Request[T]) decode(resp *rawResponse) (T, error) {
	var zero T
	if r.settings.blob {
		file := File{
			Name:        filenameFrom(resp.header.Get("Content-Disposition")),
			ContentType: resp.header.Get("Content-Type"),
			Data:        resp.body,
		}
		out, ok := any(file).(T)
		if !ok {
			return zero, fmt.Errorf("api: blob response requires Request[File], got %T", zero)
		}
		return out, nil
	}
	if r.transform != nil {
		return r.transform(json.RawMessage(resp.body))
	}
	if len(resp.body) == 0 {
		return zero, nil
	}
	var out T
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return zero, fmt.Errorf("api: decode response: %w", err)
	}
	return out, nil
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case Upload:
		return b.encode()
	case *Upload:
		return b.encode()
	case json.RawMessage:
		return b, "application/json", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	}
}

func expandPath(endpoint string, params map[string]string) (string, error) {
	var b strings.Builder
	rest := endpoint
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		name := rest[open+1 : open+closing]
		value := strings.TrimSpace(params[name])
		if value == "" {
			return "", fmt.Errorf("%w: %s in %s", ErrMissingPathParam, name, endpoint)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+closing+1:]
	}
}

// Envelope is the common backend response wrapper.
type Envelope struct {
	Message json.RawMessage `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MessageText returns the message when the backend sent a plain string.
func (e Envelope) MessageText() string {
	var text string
	if len(e.Message) == 0 || json.Unmarshal(e.Message, &text) != nil {
		return ""
	}
	return text
}
