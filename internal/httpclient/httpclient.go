// Package httpclient is a small HTTP client with optional Bearer auth, a
// base URL, and retries on 429 and 5xx responses.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

// Client is an HTTP client with Bearer auth, base URL, and retry logic.
type Client struct {
	baseURL    string
	token      string
	header     http.Header
	httpClient *http.Client
	maxRetries uint64
	baseDelay  time.Duration
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry budget and the first backoff delay, which
// doubles on each further attempt. Default: 3 retries from 1s.
func WithRetries(n uint64, base time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.baseDelay = base
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// New creates a Client for baseURL. An empty token disables the
// Authorization header.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		header:  make(http.Header),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends body to path and returns the response body. Returns *APIError
// for non-2xx responses. Retries on 429 (honouring Retry-After) and 5xx
// with exponential backoff; transport errors are not retried.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, header http.Header) ([]byte, error) {
	// A Retry-After from the last 429 replaces the next computed delay.
	var retryAfter time.Duration
	base := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseDelay))
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		next, stop := base.Next()
		if !stop && retryAfter > 0 {
			next, retryAfter = retryAfter, 0
		}
		return next, stop
	})

	var out []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.send(ctx, method, path, body, header)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				retryAfter = apiErr.retryAfter
			}
			return err
		}
		out = resp
		return nil
	})
	return out, err
}

// send performs one attempt. Retryable API errors come back wrapped by
// retry.RetryableError.
func (c *Client) send(ctx context.Context, method, path string, body []byte, header http.Header) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	bodyStr := string(data)
	if len(bodyStr) > 512 {
		bodyStr = bodyStr[:512]
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	if apiErr.Retryable() {
		return nil, retry.RetryableError(apiErr)
	}
	return nil, apiErr
}

func parseRetryAfter(v string) time.Duration {
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// GetJSON sends a GET request and unmarshals the JSON response into dest.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dest any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	data, err := c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// PostJSON marshals v and POSTs it to path.
func (c *Client) PostJSON(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("httpclient: marshal: %w", err)
	}
	_, err = c.Do(ctx, http.MethodPost, path, body, http.Header{"Content-Type": {"application/json"}})
	return err
}
