package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"

	"ytcurate/config"
	"ytcurate/storage"
)

const (
	defaultYtdlpTimeout = 10 * time.Minute
	// maxStderr bounds the yt-dlp stderr quoted in errors.
	maxStderr = 512
)

// ytdlpRunner holds the yt-dlp settings shared by the fetcher and the
// transcript downloader.
type ytdlpRunner struct {
	executable string
	cookies    string
	proxy      string
	timeout    time.Duration
}

// command returns a new yt-dlp command with cookies and proxy applied.
func (r ytdlpRunner) command() *ytdlp.Command {
	cmd := ytdlp.New().NoWarnings()
	if r.executable != "" {
		cmd = cmd.SetExecutable(r.executable)
	}
	if r.cookies != "" {
		cmd = cmd.Cookies(r.cookies)
	}
	if r.proxy != "" {
		cmd = cmd.Proxy(r.proxy)
	}
	return cmd
}

// run executes cmd against target and returns its stdout.
func (r ytdlpRunner) run(ctx context.Context, cmd *ytdlp.Command, target string) (string, error) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = defaultYtdlpTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := cmd.Run(ctx, target)
	if err != nil {
		if result != nil && result.Stderr != "" {
			return "", fmt.Errorf("yt-dlp: %w: %s", err, tail(result.Stderr, maxStderr))
		}
		return "", fmt.Errorf("yt-dlp: %w", err)
	}
	if result == nil {
		return "", errors.New("yt-dlp: no result")
	}
	return result.Stdout, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// flatPlaylist is the -J --flat-playlist dump of a channel tab.
type flatPlaylist struct {
	ID        string      `json:"id"`
	ChannelID string      `json:"channel_id"`
	Channel   string      `json:"channel"`
	Entries   []flatEntry `json:"entries"`
}

type flatEntry struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	UploadDate  string  `json:"upload_date"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
}

func parseFlatPlaylist(out string) (*flatPlaylist, error) {
	var p flatPlaylist
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &p, nil
}

// YtdlpFetcher implements VideoFetcher by running yt-dlp against the
// channel's /videos tab in flat-playlist mode. It needs no API key.
type YtdlpFetcher struct {
	runner ytdlpRunner
	logger zerolog.Logger
	now    func() time.Time
}

func newYtdlpFetcher(cfg config.FetcherConfig, o options) *YtdlpFetcher {
	proxy := ""
	if cfg.UseProxy {
		proxy = cfg.Proxy
	}
	return &YtdlpFetcher{
		runner: ytdlpRunner{
			executable: cfg.YtdlpPath,
			cookies:    cfg.CookiesFile,
			proxy:      proxy,
		},
		logger: o.logger,
		now:    o.now,
	}
}

// Method returns config.MethodYtdlp.
func (y *YtdlpFetcher) Method() string { return config.MethodYtdlp }

// ChannelID returns a bare channel id unchanged, otherwise reads channel_id
// from a one-entry dump of the channel.
func (y *YtdlpFetcher) ChannelID(ctx context.Context, locator string) (string, error) {
	if loc, err := ParseLocator(locator); err == nil && loc.Kind == LocatorChannelID {
		return loc.Value, nil
	}

	cmd := y.runner.command().DumpSingleJSON().FlatPlaylist().PlaylistItems("1")
	out, err := y.runner.run(ctx, cmd, normalizeChannelURL(locator))
	if err != nil {
		return "", &FetchError{Method: y.Method(), Channel: locator, Err: err}
	}
	p, err := parseFlatPlaylist(out)
	if err != nil {
		return "", &FetchError{Method: y.Method(), Channel: locator, Err: err}
	}
	switch {
	case p.ChannelID != "":
		return p.ChannelID, nil
	case channelIDRegex.MatchString(p.ID):
		return p.ID, nil
	}
	return "", &FetchError{Method: y.Method(), Channel: locator, Err: ErrChannelNotFound}
}

// FetchVideos lists up to maxCount entries. Entries without an id are
// skipped; upload dates are kept as yt-dlp reports them.
func (y *YtdlpFetcher) FetchVideos(ctx context.Context, locator string, maxCount int) ([]storage.Video, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	target := normalizeChannelURL(locator)
	y.logger.Info().Str("url", target).Int("max", maxCount).Msg("listing channel with yt-dlp")

	cmd := y.runner.command().
		DumpSingleJSON().
		FlatPlaylist().
		PlaylistItems(fmt.Sprintf("1:%d", maxCount))
	out, err := y.runner.run(ctx, cmd, target)
	if err != nil {
		return nil, &FetchError{Method: y.Method(), Channel: locator, Err: err}
	}
	p, err := parseFlatPlaylist(out)
	if err != nil {
		return nil, &FetchError{Method: y.Method(), Channel: locator, Err: err}
	}

	now := y.now()
	videos := make([]storage.Video, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.ID == "" {
			continue
		}
		title := e.Title
		if title == "" {
			title = storage.UnknownTitle
		}
		v := storage.NewVideo(e.ID, title, e.UploadDate, e.Description, now)
		v.Duration = int(e.Duration)
		videos = append(videos, v)
		if len(videos) == maxCount {
			break
		}
	}
	return videos, nil
}
