package youtube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ytcurate/config"
)

// TranscriptExt is the extension of every transcript file.
const TranscriptExt = ".vtt"

// TranscriptDownloader checks for and downloads a video's captions as WebVTT.
type TranscriptDownloader interface {
	// Method returns the configured method name.
	Method() string

	// IsAvailable reports whether the video has any caption track.
	IsAvailable(ctx context.Context, videoID, videoURL string) (bool, error)

	// Download writes <dir>/<videoID>.vtt and returns its path, or "" when
	// the backend produced no file.
	Download(ctx context.Context, videoID, videoURL string) (string, error)
}

// TranscriptPath returns the transcript file path for videoID in dir.
func TranscriptPath(dir, videoID string) string {
	return filepath.Join(dir, videoID+TranscriptExt)
}

// NewTranscriptDownloader constructs the downloader named by cfg.Method and
// creates the transcript directory. An unknown method, an unusable proxy or
// an uncreatable directory returns a *StrategyError.
func NewTranscriptDownloader(cfg config.TranscriptConfig, opts ...Option) (TranscriptDownloader, error) {
	o := buildOptions(opts)

	var (
		d   TranscriptDownloader
		err error
	)
	switch cfg.Method {
	case config.MethodYtdlp:
		d = newYtdlpTranscriptDownloader(cfg, o)
	case config.MethodTranscriptAPI:
		d, err = newTranscriptServiceDownloader(cfg, o)
	default:
		err = ErrUnknownMethod
	}
	if err != nil {
		return nil, &StrategyError{Kind: "transcript", Method: cfg.Method, Err: err}
	}

	if err := os.MkdirAll(cfg.TranscriptDir, 0755); err != nil {
		return nil, &StrategyError{Kind: "transcript", Method: cfg.Method, Err: fmt.Errorf("create transcript directory: %w", err)}
	}
	return d, nil
}
