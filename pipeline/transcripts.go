package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ytcurate/storage"
)

// ErrNoTranscript is returned by DownloadOne when the video has no captions
// or the backend produced no file.
var ErrNoTranscript = errors.New("no transcript available")

// BatchResult tallies a transcript batch.
type BatchResult struct {
	Success     int
	Failed      int
	Unavailable int
	Total       int
}

// DownloadTranscripts downloads and links a transcript for each video, up to
// max videos when max is positive. Per-video failures are logged and counted;
// the batch only stops early when ctx is canceled.
func (r *Runner) DownloadTranscripts(ctx context.Context, videos []storage.Video, max int) BatchResult {
	if max > 0 && len(videos) > max {
		videos = videos[:max]
	}
	res := BatchResult{Total: len(videos)}
	r.Logger.Info().Int("videos", len(videos)).Str("method", r.downloaderMethod()).Msg("downloading transcripts")

	for _, v := range videos {
		if ctx.Err() != nil {
			r.Logger.Warn().Err(ctx.Err()).Msg("transcript batch interrupted")
			break
		}
		outcome, _, err := r.transcript(ctx, v)
		switch outcome {
		case OutcomeSuccess:
			res.Success++
		case OutcomeUnavailable:
			res.Unavailable++
		default:
			res.Failed++
			r.Logger.Warn().Err(err).Str("video_id", v.VideoID).Msg("transcript failed")
		}
		if r.OnTranscript != nil {
			r.OnTranscript(v, outcome)
		}
	}

	r.Logger.Info().
		Int("success", res.Success).
		Int("failed", res.Failed).
		Int("unavailable", res.Unavailable).
		Int("total", res.Total).
		Msg("transcript batch finished")
	return res
}

// DownloadOne downloads and links the transcript of a single video. It
// returns the transcript path, ErrNoTranscript when none exists, or the
// backend or storage error.
func (r *Runner) DownloadOne(ctx context.Context, v storage.Video) (string, error) {
	if v.URL == "" {
		v.URL = storage.WatchURL(v.VideoID)
	}
	outcome, path, err := r.transcript(ctx, v)
	switch outcome {
	case OutcomeSuccess:
		return path, nil
	case OutcomeUnavailable:
		return "", ErrNoTranscript
	default:
		return "", err
	}
}

// DownloadMissing downloads transcripts for every video in the master list
// without one on disk, up to max when max is positive.
func (r *Runner) DownloadMissing(ctx context.Context, max int) (BatchResult, error) {
	missing, err := r.Store.VideosWithoutTranscript(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	r.Logger.Info().Int("missing", len(missing)).Msg("videos without transcripts")
	return r.DownloadTranscripts(ctx, missing, max), nil
}

// transcript checks availability, downloads and links one transcript and
// records the outcome. The path is set on success only.
func (r *Runner) transcript(ctx context.Context, v storage.Video) (Outcome, string, error) {
	if r.Downloader == nil {
		return OutcomeFailed, "", errors.New("no transcript downloader configured")
	}
	method := r.Downloader.Method()
	log := r.Logger.With().Str("video_id", v.VideoID).Str("method", method).Logger()

	outcome, path, err := func() (Outcome, string, error) {
		ok, err := r.Downloader.IsAvailable(ctx, v.VideoID, v.URL)
		if err != nil {
			return OutcomeFailed, "", err
		}
		if !ok {
			log.Info().Msg("no transcript available")
			return OutcomeUnavailable, "", nil
		}

		path, err := r.Downloader.Download(ctx, v.VideoID, v.URL)
		if err != nil {
			return OutcomeFailed, "", err
		}
		if path == "" {
			log.Info().Msg("backend produced no transcript file")
			return OutcomeUnavailable, "", nil
		}

		linked, err := r.Store.LinkTranscript(ctx, v.VideoID, path)
		if err != nil {
			return OutcomeFailed, "", fmt.Errorf("link transcript: %w", err)
		}
		if !linked {
			log.Warn().Str("path", path).Msg("video not in master list, transcript left unlinked")
		}
		log.Info().Str("path", path).Msg("transcript downloaded")
		return OutcomeSuccess, path, nil
	}()

	r.Metrics.Transcript(method, string(outcome))
	return outcome, path, err
}

// checkWritable creates and removes a probe file in the directory of path,
// creating the directory if needed.
func checkWritable(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
