// Package pipeline orchestrates the configured acquisition and transcript
// strategies against the master list: incremental updates, full rebuilds
// and batch transcript downloads.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ytcurate/config"
	"ytcurate/internal/metrics"
	"ytcurate/storage"
	"ytcurate/youtube"
)

// RebuildFetchLimit is the number of videos requested by a rebuild.
const RebuildFetchLimit = 1000

// ErrNoVideosFetched is returned by Rebuild when the fetch came back empty.
// The master list is left untouched.
var ErrNoVideosFetched = errors.New("no videos fetched")

// Outcome is the result of one transcript attempt.
type Outcome string

const (
	OutcomeSuccess     Outcome = metrics.ResultSuccess
	OutcomeFailed      Outcome = metrics.ResultFailed
	OutcomeUnavailable Outcome = metrics.ResultUnavailable
)

// Runner wires one process's settings, strategies and store together.
type Runner struct {
	Settings   *config.Settings
	Fetcher    youtube.VideoFetcher
	Downloader youtube.TranscriptDownloader
	Store      *storage.MasterList
	Logger     zerolog.Logger
	// Metrics may be nil.
	Metrics *metrics.Recorder

	// OnTranscript, when set, is called after every transcript attempt of a batch.
	OnTranscript func(v storage.Video, outcome Outcome)
}

// UpdateOptions configures Update.
type UpdateOptions struct {
	DownloadTranscripts bool
}

// UpdateResult summarises an update run.
type UpdateResult struct {
	NewVideos   []storage.Video
	TotalVideos int
	Updated     bool
	// Transcripts is nil unless transcripts were requested.
	Transcripts *BatchResult
}

// Update fetches the newest MAX_VIDEOS_PER_UPDATE videos, appends the unseen
// ones to the master list and saves it. Transcripts for the new videos are
// downloaded afterwards when requested.
//
// A corrupt master list is logged and replaced by the fetched videos; the
// previous content stays in the backup file written by Save.
func (r *Runner) Update(ctx context.Context, opts UpdateOptions) (*UpdateResult, error) {
	started := time.Now()
	res, err := r.update(ctx, opts)
	r.finish("update", started, err)
	return res, err
}

func (r *Runner) update(ctx context.Context, opts UpdateOptions) (*UpdateResult, error) {
	r.Logger.Info().
		Str("master_method", r.Fetcher.Method()).
		Str("transcript_method", r.downloaderMethod()).
		Msg("starting update")

	existing, err := r.Store.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrStorageCorrupt) {
			return nil, err
		}
		r.Logger.Error().Err(err).Msg("master list unreadable, starting from an empty list")
	}
	r.Logger.Info().Int("existing", len(existing.Videos)).Msg("master list loaded")

	fetched, err := r.fetch(ctx, r.Settings.MaxVideosPerUpdate)
	if err != nil {
		return nil, err
	}

	doc, added := storage.Update(existing, fetched, r.Store.Now())
	r.Logger.Info().Int("new", len(added)).Int("fetched", len(fetched)).Msg("filtered known videos")

	if err := r.Store.Save(ctx, doc); err != nil {
		return nil, err
	}
	r.Metrics.VideosAdded(len(added))
	r.Metrics.MasterListSize(doc.TotalVideos)
	for _, v := range added {
		r.Logger.Info().Str("video_id", v.VideoID).Str("title", v.Title).Str("upload_date", v.UploadDate).Msg("new video")
	}

	res := &UpdateResult{
		NewVideos:   added,
		TotalVideos: doc.TotalVideos,
		Updated:     len(added) > 0,
	}
	if opts.DownloadTranscripts && len(added) > 0 {
		batch := r.DownloadTranscripts(ctx, added, 0)
		res.Transcripts = &batch
	}
	return res, nil
}

// RebuildOptions configures Rebuild.
type RebuildOptions struct {
	PreserveManual      bool
	DownloadTranscripts bool
	// MaxTranscripts caps the transcript batch; 0 means no cap.
	MaxTranscripts int
}

// RebuildResult summarises a rebuild.
type RebuildResult struct {
	TotalVideos int
	// Preserved counts videos whose categories were carried over.
	Preserved      int
	PreserveManual bool
	// BackupPath is "" when there was no master list to back up.
	BackupPath  string
	Transcripts *BatchResult
}

// Rebuild replaces the master list with a fresh fetch of up to
// RebuildFetchLimit videos, optionally carrying curator fields over from the
// previous list. A timestamped backup is written first. An empty fetch
// returns ErrNoVideosFetched and leaves the list untouched.
func (r *Runner) Rebuild(ctx context.Context, opts RebuildOptions) (*RebuildResult, error) {
	started := time.Now()
	res, err := r.rebuild(ctx, opts)
	r.finish("rebuild", started, err)
	return res, err
}

func (r *Runner) rebuild(ctx context.Context, opts RebuildOptions) (*RebuildResult, error) {
	r.Logger.Info().
		Str("master_method", r.Fetcher.Method()).
		Bool("preserve_manual", opts.PreserveManual).
		Msg("starting rebuild")

	backup, err := r.Store.Backup(ctx)
	if err != nil {
		return nil, err
	}
	if backup != "" {
		r.Logger.Info().Str("path", backup).Msg("backup written")
	}

	old, err := r.Store.Load(ctx)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("could not load existing master list, nothing to preserve")
		old = nil
	} else {
		r.Logger.Info().Int("videos", len(old.Videos)).Msg("existing videos available for preservation")
	}

	fetched, err := r.fetch(ctx, RebuildFetchLimit)
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		return nil, ErrNoVideosFetched
	}

	doc, preserved := storage.Rebuild(fetched, old, opts.PreserveManual, storage.RebuildInfo{
		ChannelURL:       r.Settings.ChannelURL,
		Reason:           storage.DefaultRebuildReason,
		MasterMethod:     r.Fetcher.Method(),
		TranscriptMethod: r.Settings.TranscriptMethod,
	}, r.Store.Now())
	if opts.PreserveManual {
		r.Logger.Info().Int("preserved", preserved).Msg("preserved manual data")
	}

	if err := r.Store.Save(ctx, doc); err != nil {
		return nil, err
	}
	r.Metrics.MasterListSize(doc.TotalVideos)
	r.Logger.Info().Int("videos", doc.TotalVideos).Msg("master list rebuilt")

	res := &RebuildResult{
		TotalVideos:    doc.TotalVideos,
		Preserved:      preserved,
		PreserveManual: opts.PreserveManual,
		BackupPath:     backup,
	}
	if opts.DownloadTranscripts {
		batch := r.DownloadTranscripts(ctx, doc.Videos, opts.MaxTranscripts)
		res.Transcripts = &batch
	}
	return res, nil
}

func (r *Runner) fetch(ctx context.Context, maxCount int) ([]storage.Video, error) {
	method := r.Fetcher.Method()
	r.Logger.Info().Str("method", method).Int("max", maxCount).Msg("fetching videos")

	videos, err := r.Fetcher.FetchVideos(ctx, r.Settings.ChannelURL, maxCount)
	if err != nil {
		r.Metrics.FetchFailed(method)
		return nil, err
	}
	r.Metrics.VideosFetched(method, len(videos))
	r.Logger.Info().Int("count", len(videos)).Msg("videos fetched")
	return videos, nil
}

func (r *Runner) finish(operation string, started time.Time, err error) {
	r.Metrics.Observe(operation, started, err)
	if r.Settings == nil {
		return
	}
	if werr := r.Metrics.WriteTextfile(r.Settings.MetricsTextfile); werr != nil {
		r.Logger.Warn().Err(werr).Str("path", r.Settings.MetricsTextfile).Msg("could not write metrics")
	}
}

func (r *Runner) downloaderMethod() string {
	if r.Downloader == nil {
		return ""
	}
	return r.Downloader.Method()
}

// Check is one line of a validation report.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Validate exercises the configured strategies without touching the master
// list: it resolves the channel, fetches five videos, probes transcript
// availability on the first of them and checks that the master list
// directory is writable. Every check runs; the returned error is non-nil
// when any of them failed.
func (r *Runner) Validate(ctx context.Context) ([]Check, error) {
	var checks []Check
	add := func(name string, err error, detail string) {
		c := Check{Name: name, OK: err == nil, Detail: detail}
		if err != nil {
			c.Detail = err.Error()
		}
		checks = append(checks, c)
	}

	id, err := r.Fetcher.ChannelID(ctx, r.Settings.ChannelURL)
	add("channel id ("+r.Fetcher.Method()+")", err, id)

	videos, err := r.Fetcher.FetchVideos(ctx, r.Settings.ChannelURL, 5)
	add("fetch videos ("+r.Fetcher.Method()+")", err, fmt.Sprintf("%d videos", len(videos)))

	if r.Downloader != nil {
		name := "transcript availability (" + r.Downloader.Method() + ")"
		if len(videos) == 0 {
			add(name, errors.New("no video to probe"), "")
		} else {
			v := videos[0]
			ok, err := r.Downloader.IsAvailable(ctx, v.VideoID, v.URL)
			add(name, err, fmt.Sprintf("%s available=%t", v.VideoID, ok))
		}
	}

	add("master list directory", checkWritable(r.Store.Path()), r.Store.Path())

	var failed []string
	for _, c := range checks {
		if !c.OK {
			failed = append(failed, c.Name)
		}
	}
	if len(failed) > 0 {
		return checks, fmt.Errorf("validation failed: %d of %d checks", len(failed), len(checks))
	}
	return checks, nil
}
