// Package http provides the rate-limited HTTP client used for YouTube
// requests. Requests are sent once; callers decide what a failure means.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Maximum response body kept on an HTTPError.
const maxErrorBody = 4 << 10

// Client wraps an HTTP client with per-host rate limiting and status classification.
type Client struct {
	base    *http.Client
	config  Config
	limiter *RateLimiter
}

// Config holds HTTP client configuration.
type Config struct {
	// Timeout for individual HTTP requests
	Timeout time.Duration

	// User agent sent when the request does not set one
	UserAgent string

	// Proxy is an http:// proxy URL applied to this client's transport only.
	// Empty means a direct connection.
	Proxy string

	// Rate limiter configuration
	RateLimiter RateLimiterConfig

	// Connection pool configuration
	Transport TransportConfig
}

// TransportConfig configures the HTTP transport (connection pooling).
type TransportConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	ForceAttemptHTTP2   bool
}

// DefaultConfig returns sensible defaults for HTTP client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		UserAgent:   "ytcurate/1.0",
		RateLimiter: DefaultRateLimiterConfig(),
		Transport:   DefaultTransportConfig(),
	}
}

// DefaultTransportConfig returns sensible defaults for HTTP transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// New creates a client. It fails with ErrInvalidProxy when cfg.Proxy is set
// but is not an absolute http:// URL.
func New(cfg Config) (*Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
		ForceAttemptHTTP2:   cfg.Transport.ForceAttemptHTTP2,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil || u.Scheme != "http" || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, redact(cfg.Proxy))
		}
		transport.Proxy = http.ProxyURL(u)
	}

	limiter := NewRateLimiter(cfg.RateLimiter)
	return &Client{
		base: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &limitedTransport{next: transport, limiter: limiter},
		},
		config:  cfg,
		limiter: limiter,
	}, nil
}

// Standard returns the underlying *http.Client. Requests sent through it
// share this client's proxy and rate limiter, but statuses are not classified.
func (c *Client) Standard() *http.Client {
	return c.base
}

// Response represents an HTTP response with status code and body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, urlStr string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, urlStr, nil, headers)
}

// PostJSON marshals payload and POSTs it with a JSON content type.
func (c *Client) PostJSON(ctx context.Context, urlStr string, payload any, headers map[string]string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return c.Do(ctx, http.MethodPost, urlStr, body, h)
}

// Do sends one request. Throttling statuses (429, 503, 403) return a
// *RateLimitError, other non-2xx statuses an *HTTPError.
func (c *Client) Do(ctx context.Context, method, urlStr string, body []byte, headers map[string]string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	display := stripQuery(req.URL)
	if isThrottle(resp.StatusCode) {
		return nil, &RateLimitError{
			StatusCode:     resp.StatusCode,
			URL:            display,
			RetryAfter:     c.limiter.Backoff(req.URL.Hostname()),
			IsBotDetection: resp.StatusCode == http.StatusForbidden,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: display, Body: b}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// Close closes idle connections.
func (c *Client) Close() error {
	c.base.CloseIdleConnections()
	return nil
}

// limitedTransport applies the rate limiter to every round trip and feeds
// throttling responses back into it.
type limitedTransport struct {
	next    http.RoundTripper
	limiter *RateLimiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()
	if err := t.limiter.Wait(req.Context(), host); err != nil {
		return nil, err
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	switch {
	case isThrottle(resp.StatusCode):
		t.limiter.RecordThrottle(host, parseRetryAfter(resp.Header))
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		t.limiter.RecordSuccess(host)
	}
	return resp, nil
}

func isThrottle(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusForbidden
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func parseRetryAfter(header http.Header) time.Duration {
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}

func stripQuery(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	c.User = nil
	return c.String()
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
