package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"ytcurate/config"
)

// YtdlpTranscriptDownloader fetches subtitles with yt-dlp in subtitle-only mode.
type YtdlpTranscriptDownloader struct {
	runner ytdlpRunner
	dir    string
	logger zerolog.Logger
}

func newYtdlpTranscriptDownloader(cfg config.TranscriptConfig, o options) *YtdlpTranscriptDownloader {
	proxy := ""
	if cfg.UseProxy {
		proxy = cfg.Proxy
	}
	return &YtdlpTranscriptDownloader{
		runner: ytdlpRunner{
			executable: cfg.YtdlpPath,
			cookies:    cfg.CookiesFile,
			proxy:      proxy,
		},
		dir:    cfg.TranscriptDir,
		logger: o.logger,
	}
}

// Method returns config.MethodYtdlp.
func (y *YtdlpTranscriptDownloader) Method() string { return config.MethodYtdlp }

type captionInfo struct {
	Subtitles         map[string]json.RawMessage `json:"subtitles"`
	AutomaticCaptions map[string]json.RawMessage `json:"automatic_captions"`
}

// IsAvailable reports whether manual or automatic captions exist.
func (y *YtdlpTranscriptDownloader) IsAvailable(ctx context.Context, videoID, videoURL string) (bool, error) {
	cmd := y.runner.command().DumpSingleJSON().NoPlaylist().SkipDownload()
	out, err := y.runner.run(ctx, cmd, videoURL)
	if err != nil {
		return false, &TranscriptError{Method: y.Method(), VideoID: videoID, Err: err}
	}
	var info captionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return false, &TranscriptError{Method: y.Method(), VideoID: videoID, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	manual, auto := len(info.Subtitles) > 0, len(info.AutomaticCaptions) > 0
	y.logger.Debug().Str("video_id", videoID).Bool("manual", manual).Bool("auto", auto).Msg("caption availability")
	return manual || auto, nil
}

// Download writes the video's subtitles to <dir>/<id>.vtt. yt-dlp names its
// output <id>.<lang>.vtt; the English track is kept when present, otherwise
// the first by name. Returns "" when yt-dlp wrote nothing.
func (y *YtdlpTranscriptDownloader) Download(ctx context.Context, videoID, videoURL string) (string, error) {
	cmd := y.runner.command().
		WriteSubs().
		WriteAutoSubs().
		SkipDownload().
		NoPlaylist().
		SubFormat("vtt").
		Output(filepath.Join(y.dir, videoID+".%(ext)s"))
	if _, err := y.runner.run(ctx, cmd, videoURL); err != nil {
		return "", &TranscriptError{Method: y.Method(), VideoID: videoID, Err: err}
	}

	target := TranscriptPath(y.dir, videoID)
	candidates, err := filepath.Glob(filepath.Join(y.dir, globEscape(videoID)+".*"+TranscriptExt))
	if err != nil {
		return "", &TranscriptError{Method: y.Method(), VideoID: videoID, Err: err}
	}
	chosen := pickSubtitleFile(videoID, candidates)
	if chosen == "" {
		if fileExists(target) {
			return target, nil
		}
		y.logger.Warn().Str("video_id", videoID).Msg("yt-dlp finished but wrote no subtitle file")
		return "", nil
	}

	if err := os.Rename(chosen, target); err != nil {
		return "", &TranscriptError{Method: y.Method(), VideoID: videoID, Err: fmt.Errorf("rename %s: %w", chosen, err)}
	}
	for _, c := range candidates {
		if c != chosen {
			os.Remove(c)
		}
	}
	return target, nil
}

// pickSubtitleFile chooses among <id>.<lang>.vtt files: en, then en-*, then
// the first in lexical order.
func pickSubtitleFile(videoID string, files []string) string {
	if len(files) == 0 {
		return ""
	}
	sort.Strings(files)
	lang := func(f string) string {
		name := strings.TrimSuffix(filepath.Base(f), TranscriptExt)
		return strings.TrimPrefix(name, videoID+".")
	}
	for _, f := range files {
		if lang(f) == "en" {
			return f
		}
	}
	for _, f := range files {
		if strings.HasPrefix(lang(f), "en-") {
			return f
		}
	}
	return files[0]
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
