// Package canvas is a thin REST client for the Canvas LMS API: bearer
// auth, JSON bodies, Link-header pagination and retry on transient
// failures. Domain operations live in api.go.
package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client talks to one Canvas instance.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client; tests use it to
// point at an httptest server with a short timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries caps retry attempts for transient failures.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// New creates a client for the given Canvas base URL and API token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		maxRetries: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is a non-2xx response. Status is kept so the retry policy can
// distinguish rate limits and server errors from plain request errors.
type apiError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *apiError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("canvas %s %s: status %d: %s", e.Method, e.Path, e.Status, body)
}

// IsNotFound reports whether err is a Canvas 404 response.
func IsNotFound(err error) bool {
	if ae, ok := err.(*apiError); ok {
		return ae.Status == http.StatusNotFound
	}
	return false
}

func retryable(err error) bool {
	if ae, ok := err.(*apiError); ok {
		return ae.Status == http.StatusTooManyRequests || ae.Status >= 500
	}
	// Network-level failures (timeouts, resets) are worth retrying.
	return err != nil
}

// do executes one request with retries, decoding the JSON response body
// into out when out is non-nil. The response's Link header is returned
// for pagination.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) (string, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("marshal request body: %w", err)
		}
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var link string
	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &apiError{Status: resp.StatusCode, Method: method, Path: path, Body: string(raw)}
			if retryable(apiErr) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		link = resp.Header.Get("Link")
		if out != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode %s %s response: %w", method, path, err))
			}
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)

	err := backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		slog.Warn("canvas request failed, retrying",
			"method", method, "path", path, "wait", wait, "error", err)
	})
	return link, err
}

// getJSON fetches one object.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.do(ctx, http.MethodGet, path, query, nil, out)
	return err
}

// postJSON creates an object and decodes the created representation.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

// putJSON updates an object and decodes the updated representation.
func (c *Client) putJSON(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, http.MethodPut, path, nil, body, out)
	return err
}

// getPaginated follows the Link rel="next" chain, appending each page of
// results via collect until Canvas stops handing out pages.
func (c *Client) getPaginated(ctx context.Context, path string, query url.Values, collect func(page json.RawMessage) error) error {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("per_page") == "" {
		query.Set("per_page", "100")
	}

	nextPath := path
	nextQuery := query
	for {
		var page json.RawMessage
		link, err := c.do(ctx, http.MethodGet, nextPath, nextQuery, nil, &page)
		if err != nil {
			return err
		}
		if err := collect(page); err != nil {
			return err
		}

		next := nextLink(link)
		if next == "" {
			return nil
		}
		u, err := url.Parse(next)
		if err != nil {
			return fmt.Errorf("parse next page link %q: %w", next, err)
		}
		nextPath = u.Path
		nextQuery = u.Query()
	}
}

// nextLink extracts the rel="next" URL from a Canvas Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(strings.TrimSpace(part), ";")
		if len(segments) < 2 {
			continue
		}
		urlPart := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, seg := range segments[1:] {
			if strings.TrimSpace(seg) == `rel="next"` {
				return urlPart
			}
		}
	}
	return ""
}
