// Package youtube acquires a channel's video list and per-video transcripts.
//
// Each concern has one interface and a constructor that selects the backend
// by method name. A backend that cannot be constructed is an error; no call
// ever falls back to another method.
package youtube

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"ytcurate/config"
	ythttp "ytcurate/http"
	"ytcurate/storage"
)

// VideoFetcher lists a channel's uploads as master list records.
type VideoFetcher interface {
	// Method returns the configured method name.
	Method() string

	// ChannelID resolves a channel locator to its UC… id.
	ChannelID(ctx context.Context, locator string) (string, error)

	// FetchVideos returns up to maxCount of the channel's most recent uploads,
	// newest first, as uncategorized records. Any failure is fatal for the call.
	FetchVideos(ctx context.Context, locator string, maxCount int) ([]storage.Video, error)
}

type options struct {
	logger     zerolog.Logger
	now        func() time.Time
	httpClient *ythttp.Client
	apiOptions []option.ClientOption
	playerURL  string
}

// Option configures fetchers and transcript downloaders.
type Option func(*options)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the clock used for last_checked dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithHTTPClient replaces the HTTP client built from the configuration.
// Any configured proxy is then the caller's responsibility.
func WithHTTPClient(c *ythttp.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithAPIOptions appends client options for the YouTube Data API service,
// e.g. option.WithEndpoint to target a test server.
func WithAPIOptions(opts ...option.ClientOption) Option {
	return func(o *options) { o.apiOptions = append(o.apiOptions, opts...) }
}

// WithPlayerEndpoint overrides the innertube player endpoint.
func WithPlayerEndpoint(u string) Option {
	return func(o *options) { o.playerURL = u }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:    zerolog.Nop(),
		now:       time.Now,
		playerURL: playerEndpoint,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// httpClientFor returns the injected client or a new one honouring timeout and proxy.
func (o options) httpClientFor(timeout time.Duration, proxy string) (*ythttp.Client, error) {
	if o.httpClient != nil {
		return o.httpClient, nil
	}
	cfg := ythttp.DefaultConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	cfg.Proxy = proxy
	return ythttp.New(cfg)
}

// NewFetcher constructs the fetcher named by cfg.Method. An unknown method or
// a missing credential returns a *StrategyError.
func NewFetcher(ctx context.Context, cfg config.FetcherConfig, opts ...Option) (VideoFetcher, error) {
	o := buildOptions(opts)

	switch cfg.Method {
	case config.MethodYouTubeAPI:
		if cfg.APIKey == "" {
			return nil, &StrategyError{Kind: "fetcher", Method: cfg.Method, Err: ErrMissingCredential}
		}
		f, err := newAPIFetcher(ctx, cfg, o)
		if err != nil {
			return nil, &StrategyError{Kind: "fetcher", Method: cfg.Method, Err: err}
		}
		return f, nil
	case config.MethodYtdlp:
		return newYtdlpFetcher(cfg, o), nil
	default:
		return nil, &StrategyError{Kind: "fetcher", Method: cfg.Method, Err: ErrUnknownMethod}
	}
}
