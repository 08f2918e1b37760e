package http

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError indicates the server throttled the request (429, 503) or
// refused it as automated traffic (403).
type RateLimitError struct {
	// StatusCode is the HTTP status code (429, 403, or 503)
	StatusCode int
	// URL is the request URL with the query string removed
	URL string
	// RetryAfter is the wait the server or the limiter recommends
	RetryAfter time.Duration
	// IsBotDetection is true for 403 responses
	IsBotDetection bool
}

// Error returns a string representation of the rate limit error.
func (e *RateLimitError) Error() string {
	if e.IsBotDetection {
		return fmt.Sprintf("bot detection (status %d) on %s", e.StatusCode, e.URL)
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (status %d) on %s: retry after %v", e.StatusCode, e.URL, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (status %d) on %s", e.StatusCode, e.URL)
}

// HTTPError indicates a non-2xx response that is not a rate limit.
type HTTPError struct {
	StatusCode int
	URL        string
	// Body is the response body, truncated to maxErrorBody bytes
	Body []byte
}

// Error returns a string representation of the HTTP error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status %d on %s", e.StatusCode, e.URL)
}

// ErrInvalidProxy is returned by New when the configured proxy URL is unusable.
var ErrInvalidProxy = errors.New("http: invalid proxy URL")

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.StatusCode
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
