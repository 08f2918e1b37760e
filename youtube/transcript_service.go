package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ytcurate/config"
	ythttp "ytcurate/http"
	"ytcurate/storage"
)

const (
	// playerEndpoint is the innertube endpoint that lists a video's caption tracks.
	playerEndpoint = "https://www.youtube.com/youtubei/v1/player"

	defaultClientName    = "WEB"
	defaultClientVersion = "2.20240101.00.00"

	// browserUserAgent mimics a standard browser.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type playerRequest struct {
	Context clientContext `json:"context"`
	VideoID string        `json:"videoId"`
}

type clientContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	HL            string `json:"hl"`
	GL            string `json:"gl"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		Renderer struct {
			CaptionTracks []CaptionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// CaptionTrack is one caption track offered for a video.
type CaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	// Kind is "asr" for automatic captions.
	Kind string `json:"kind"`
}

// timedtextResponse is the json3 timed text format.
type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

type timedtextEvent struct {
	TStartMs  int64           `json:"tStartMs"`
	DDuration int64           `json:"dDurationMs"`
	Segs      []timedtextSegs `json:"segs,omitempty"`
}

type timedtextSegs struct {
	UTF8 string `json:"utf8"`
}

// TranscriptServiceDownloader lists caption tracks through the innertube
// player endpoint and converts the chosen track to WebVTT.
type TranscriptServiceDownloader struct {
	client    *ythttp.Client
	playerURL string
	dir       string
	logger    zerolog.Logger
}

func newTranscriptServiceDownloader(cfg config.TranscriptConfig, o options) (*TranscriptServiceDownloader, error) {
	client, err := o.httpClientFor(cfg.Timeout, cfg.Proxy)
	if err != nil {
		return nil, err
	}
	if cfg.Proxy != "" {
		o.logger.Info().Str("proxy", redactProxy(cfg.Proxy)).Msg("transcript service uses proxy")
	}
	return &TranscriptServiceDownloader{
		client:    client,
		playerURL: o.playerURL,
		dir:       cfg.TranscriptDir,
		logger:    o.logger,
	}, nil
}

// Method returns config.MethodTranscriptAPI.
func (t *TranscriptServiceDownloader) Method() string { return config.MethodTranscriptAPI }

// Tracks lists the caption tracks of a video. A video without captions
// returns an empty list.
func (t *TranscriptServiceDownloader) Tracks(ctx context.Context, videoID string) ([]CaptionTrack, error) {
	req := playerRequest{
		Context: clientContext{Client: innertubeClient{
			ClientName:    defaultClientName,
			ClientVersion: defaultClientVersion,
			HL:            "en",
			GL:            "US",
		}},
		VideoID: videoID,
	}
	resp, err := t.client.PostJSON(ctx, t.playerURL, req, map[string]string{
		"User-Agent": browserUserAgent,
		"Origin":     "https://www.youtube.com",
	})
	if err != nil {
		return nil, fmt.Errorf("player request: %w", err)
	}

	var pr playerResponse
	if err := json.Unmarshal(resp.Body, &pr); err != nil {
		return nil, fmt.Errorf("%w: player response: %v", ErrMalformedResponse, err)
	}
	if pr.Captions == nil {
		if s := pr.PlayabilityStatus.Status; s != "" && s != "OK" {
			t.logger.Debug().Str("video_id", videoID).Str("status", s).Str("reason", pr.PlayabilityStatus.Reason).Msg("video not playable")
		}
		return nil, nil
	}
	return pr.Captions.Renderer.CaptionTracks, nil
}

// IsAvailable reports whether any caption track exists.
func (t *TranscriptServiceDownloader) IsAvailable(ctx context.Context, videoID, _ string) (bool, error) {
	tracks, err := t.Tracks(ctx, videoID)
	if err != nil {
		return false, &TranscriptError{Method: t.Method(), VideoID: videoID, Err: err}
	}
	return len(tracks) > 0, nil
}

// Download fetches the preferred track as json3, converts it to WebVTT and
// writes <dir>/<id>.vtt atomically. A video without tracks returns "".
func (t *TranscriptServiceDownloader) Download(ctx context.Context, videoID, _ string) (string, error) {
	tracks, err := t.Tracks(ctx, videoID)
	if err != nil {
		return "", &TranscriptError{Method: t.Method(), VideoID: videoID, Err: err}
	}
	track, ok := pickTrack(tracks)
	if !ok {
		t.logger.Warn().Str("video_id", videoID).Msg("no caption tracks")
		return "", nil
	}

	cues, err := t.fetchCues(ctx, track)
	if err != nil {
		return "", &TranscriptError{Method: t.Method(), VideoID: videoID, Err: err}
	}

	path := TranscriptPath(t.dir, videoID)
	if err := storage.WriteFileAtomic(path, []byte(FormatVTT(cues))); err != nil {
		return "", &TranscriptError{Method: t.Method(), VideoID: videoID, Err: err}
	}
	t.logger.Debug().Str("video_id", videoID).Str("lang", track.LanguageCode).Int("cues", len(cues)).Msg("transcript written")
	return path, nil
}

func (t *TranscriptServiceDownloader) fetchCues(ctx context.Context, track CaptionTrack) ([]Cue, error) {
	u, err := url.Parse(track.BaseURL)
	if err != nil || track.BaseURL == "" {
		return nil, fmt.Errorf("%w: caption track URL %q", ErrMalformedResponse, track.BaseURL)
	}
	q := u.Query()
	q.Set("fmt", "json3")
	u.RawQuery = q.Encode()

	resp, err := t.client.Get(ctx, u.String(), map[string]string{"User-Agent": browserUserAgent})
	if err != nil {
		return nil, fmt.Errorf("timedtext request: %w", err)
	}
	return parseTimedtext(resp.Body)
}

// pickTrack prefers "en", then any "en-*" track, then the first track.
func pickTrack(tracks []CaptionTrack) (CaptionTrack, bool) {
	if len(tracks) == 0 {
		return CaptionTrack{}, false
	}
	for _, tr := range tracks {
		if tr.LanguageCode == "en" {
			return tr, true
		}
	}
	for _, tr := range tracks {
		if strings.HasPrefix(tr.LanguageCode, "en-") {
			return tr, true
		}
	}
	return tracks[0], true
}

// parseTimedtext converts json3 events to cues, dropping events without text.
func parseTimedtext(data []byte) ([]Cue, error) {
	var resp timedtextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: timedtext: %v", ErrMalformedResponse, err)
	}

	cues := make([]Cue, 0, len(resp.Events))
	for _, event := range resp.Events {
		var text strings.Builder
		for _, seg := range event.Segs {
			text.WriteString(seg.UTF8)
		}
		s := strings.TrimSpace(text.String())
		if s == "" {
			continue
		}
		start := time.Duration(event.TStartMs) * time.Millisecond
		cues = append(cues, Cue{
			Start: start,
			End:   start + time.Duration(event.DDuration)*time.Millisecond,
			Text:  s,
		})
	}
	return cues, nil
}

func redactProxy(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
