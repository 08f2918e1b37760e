package youtube

import "errors"

// Sentinel errors for strategy construction and acquisition.
var (
	ErrUnknownMethod     = errors.New("youtube: unknown method")
	ErrMissingCredential = errors.New("youtube: missing credential")
	ErrChannelNotFound   = errors.New("youtube: channel not found")
	ErrInvalidLocator    = errors.New("youtube: invalid channel locator")
	ErrMalformedResponse = errors.New("youtube: malformed response")
)

// StrategyError reports that a fetcher or transcript downloader could not be
// constructed. There is no fallback to another method.
type StrategyError struct {
	// Kind is "fetcher" or "transcript".
	Kind   string
	Method string
	Err    error
}

func (e *StrategyError) Error() string {
	return "youtube: cannot create " + e.Kind + " for method " + quote(e.Method) + ": " + e.Err.Error()
}

func (e *StrategyError) Unwrap() error { return e.Err }

// FetchError wraps a channel acquisition failure with the method that produced it.
// Use errors.As() to get the method:
//
//	var fetchErr *youtube.FetchError
//	if errors.As(err, &fetchErr) {
//		log.Printf("%s failed for %s", fetchErr.Method, fetchErr.Channel)
//	}
type FetchError struct {
	Method  string
	Channel string
	Err     error
}

func (e *FetchError) Error() string {
	return "youtube: " + e.Method + " fetching " + e.Channel + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// TranscriptError wraps a per-video transcript failure.
type TranscriptError struct {
	Method  string
	VideoID string
	Err     error
}

func (e *TranscriptError) Error() string {
	return "youtube: " + e.Method + " transcript for " + e.VideoID + ": " + e.Err.Error()
}

func (e *TranscriptError) Unwrap() error { return e.Err }

func quote(s string) string {
	return "\"" + s + "\""
}
