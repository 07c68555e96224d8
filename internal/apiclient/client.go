// Package apiclient is the HTTP layer between the storefront state holders
// and the external storefront API. It injects the stored credential as a
// bearer token and owns the one cross-cutting recovery rule: an
// authenticated request answered with 401 clears the session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/shopflow/internal/errs"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

const maxResponseBytes = 4 << 20

// APIError is a non-2xx response from the storefront API.
type APIError struct {
	Status int
	Detail string              // "error", "detail" or "message" from the body
	Fields map[string][]string // per-field validation messages
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message())
}

// Message is the server's text, or the status text when it sent none.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return strings.ToLower(http.StatusText(e.Status))
}

// Unwrap lets callers match ErrUnauthorized and ErrNotFound with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// FieldMessage returns the first message reported for field.
func (e *APIError) FieldMessage(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// TokenSource yields the current credential, or "" when logged out.
type TokenSource interface {
	AccessToken() string
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized func(token string)
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New returns a client rooted at baseURL. Endpoint paths are appended to
// it, so baseURL always ends in a slash.
func New(baseURL string, opts ...Option) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource installs the credential provider.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

// OnUnauthorized installs the hook run when an authenticated request is
// rejected with 401. fn receives the bearer the rejected request carried,
// which may no longer be the current one.
func (c *Client) OnUnauthorized(fn func(token string)) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts == nil {
		return ""
	}
	return ts.AccessToken()
}

func (c *Client) unauthorized(token string) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(token)
	}
}

// request describes one API call. Public requests are the ones that
// acquire a credential: they never carry a bearer and a 401 on them is a
// plain rejection, not a session expiry.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	form   *formBody
	public bool
}

type formBody struct {
	fields map[string]string
	image  *ImageUpload
}

// ImageUpload is an optional product image sent as the "image" file part.
type ImageUpload struct {
	Filename string
	Data     io.Reader
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	op := r.method + " " + r.path
	target := c.baseURL + strings.TrimPrefix(r.path, "/")
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	body, contentType, err := encodeBody(r)
	if err != nil {
		return fmt.Errorf("apiclient: encode %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("apiclient: build %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	var bearer string
	if !r.public {
		bearer = c.token()
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("apiclient: %s failed: %v", op, err)
		return &errs.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &errs.NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusUnauthorized && bearer != "" {
			log.Printf("apiclient: %s rejected credential", op)
			c.unauthorized(bearer)
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("apiclient: decode %s: %w", op, err)
	}
	return nil
}

func encodeBody(r request) (io.Reader, string, error) {
	switch {
	case r.form != nil:
		return encodeMultipart(r.form)
	case r.body != nil:
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil
	}
	return nil, "", nil
}

func encodeMultipart(f *formBody) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range f.fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if f.image != nil && f.image.Data != nil {
		part, err := w.CreateFormFile("image", f.image.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.image.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// decodeAPIError reads the common error shapes: {"error": "..."},
// {"detail": "..."}, {"message": "..."} and field maps such as
// {"email": ["user with this email already exists."]}.
func decodeAPIError(status int, raw []byte) *APIError {
	e := &APIError{Status: status, Fields: map[string][]string{}}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, k := range []string{"error", "detail", "message"} {
			if s, ok := body[k].(string); ok && s != "" {
				e.Detail = s
				break
			}
		}
		for k, v := range body {
			list, ok := v.([]any)
			if !ok {
				continue
			}
			for _, item := range list {
				if s, ok := item.(string); ok {
					e.Fields[k] = append(e.Fields[k], s)
				}
			}
		}
	}
	return e
}
