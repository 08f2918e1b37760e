// Package ytcurate keeps a curated master list of one YouTube channel's
// videos and downloads their transcripts.
//
// Overview
//
// The pipeline has two remote capabilities, each with two interchangeable
// methods chosen once from the settings file:
//
//   - Video listing: the YouTube Data API (youtube_api) or yt-dlp (ytdlp)
//   - Transcripts: yt-dlp (ytdlp) or the caption track service
//     (youtube_transcript_api)
//
// An unknown method or a missing credential fails at construction. A method
// never falls back to the other one.
//
// Quick Start
//
// Most users drive the pipeline through the ytcurate command:
//
//	ytcurate config init
//	ytcurate update --download-transcripts
//	ytcurate videos list-uncategorized
//
// The same flow from Go:
//
//	settings, err := config.Load("config.env")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fetcher, err := youtube.NewFetcher(ctx, settings.FetcherConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	downloader, err := youtube.NewTranscriptDownloader(settings.TranscriptConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	runner := &pipeline.Runner{
//		Settings:   settings,
//		Fetcher:    fetcher,
//		Downloader: downloader,
//		Store:      storage.NewMasterList(settings.MasterFile),
//		Logger:     zerolog.Nop(),
//	}
//	res, err := runner.Update(ctx, pipeline.UpdateOptions{DownloadTranscripts: true})
//
// Configuration
//
// Settings are KEY=VALUE lines read from, in order of preference, the
// --config flag, ./config.env and $XDG_CONFIG_HOME/ytcurate/config.env.
// Any key can be overridden by a YTCURATE_<KEY> environment variable.
//
// Packages
//
//   - config: settings file loading and validation
//   - youtube: listing and transcript methods, WebVTT formatting
//   - storage: the master list file, transcript linkage, curator operations
//   - pipeline: update, rebuild and transcript batches
//   - http: rate limited HTTP client used by the caption track service
//   - cli: the ytcurate command tree
//
// Dependencies
//
// The ytdlp methods need yt-dlp installed, on PATH or named by YTDLP_PATH.
package ytcurate
