package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ytcurate/pipeline"
	"ytcurate/storage"
)

func newTranscriptsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Download and inspect transcripts with the configured method",
	}
	cmd.AddCommand(
		newTranscriptsDownloadCommand(a),
		newTranscriptsMissingCommand(a),
		newTranscriptsVideosCommand(a),
		newTranscriptsStatsCommand(a),
		newTranscriptsListMissingCommand(a),
		newTranscriptsCheckCommand(a),
	)
	return cmd
}

func newTranscriptsDownloadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download <video-id> [video-url]",
		Short: "Download and link the transcript of one video",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.runner(cmd.Context())
			if err != nil {
				return err
			}
			v := storage.Video{VideoID: args[0]}
			if len(args) == 2 {
				v.URL = args[1]
			}
			path, err := r.DownloadOne(cmd.Context(), v)
			if errors.Is(err, pipeline.ErrNoTranscript) {
				fmt.Fprintf(cmd.OutOrStdout(), "No transcript available for %s\n", v.VideoID)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transcript saved to %s\n", path)
			return nil
		},
	}
}

func newTranscriptsMissingCommand(a *app) *cobra.Command {
	var maxVideos int
	cmd := &cobra.Command{
		Use:   "download-missing",
		Short: "Download transcripts for every video without one on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.runner(cmd.Context())
			if err != nil {
				return err
			}
			bar := attachProgress(cmd, r, "transcripts")
			res, err := r.DownloadMissing(cmd.Context(), maxVideos)
			bar.Finish()
			if err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), res)
			return printStats(cmd, r)
		},
	}
	cmd.Flags().IntVar(&maxVideos, "max-videos", 0, "Maximum number of videos to process (0 = all)")
	return cmd
}

func newTranscriptsVideosCommand(a *app) *cobra.Command {
	var maxVideos int
	cmd := &cobra.Command{
		Use:   "download-videos <video-id>...",
		Short: "Download transcripts for the given master list videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.runner(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := r.Store.Load(cmd.Context())
			if err != nil {
				return err
			}

			var videos []storage.Video
			for _, id := range args {
				i := doc.Find(id)
				if i < 0 {
					a.logger.Warn().Str("video_id", id).Msg("video not in master list, skipped")
					continue
				}
				videos = append(videos, doc.Videos[i])
			}
			if len(videos) == 0 {
				return fmt.Errorf("none of the %d videos are in the master list", len(args))
			}

			bar := attachProgress(cmd, r, "transcripts")
			res := r.DownloadTranscripts(cmd.Context(), videos, maxVideos)
			bar.Finish()
			printBatch(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxVideos, "max-videos", 0, "Maximum number of videos to process (0 = all)")
	return cmd
}

func newTranscriptsStatsCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show transcript coverage of the master list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			stats, err := a.store(s).TranscriptStats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			fmt.Fprintf(out, "Total videos:            %d\n", stats.TotalVideos)
			fmt.Fprintf(out, "With transcripts:        %d\n", stats.WithTranscripts)
			fmt.Fprintf(out, "Transcript files exist:  %d\n", stats.FilesExist)
			fmt.Fprintf(out, "Without transcripts:     %d\n", stats.WithoutTranscripts)
			fmt.Fprintf(out, "Coverage:                %.1f%%\n", stats.Coverage())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the statistics as JSON")
	return cmd
}

func newTranscriptsListMissingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-missing",
		Short: "List videos without a transcript on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			missing, err := a.store(s).VideosWithoutTranscript(cmd.Context())
			if err != nil {
				return err
			}
			if len(missing) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All videos have transcripts")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUPLOADED\tTITLE")
			for _, v := range missing {
				fmt.Fprintf(w, "%s\t%s\t%s\n", v.VideoID, v.UploadDate, truncate(v.Title, 60))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d videos without transcripts\n", len(missing))
			return nil
		},
	}
}

func newTranscriptsCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <video-id> [video-url]",
		Short: "Report whether a video has captions, without downloading",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.runner(cmd.Context())
			if err != nil {
				return err
			}
			id, url := args[0], storage.WatchURL(args[0])
			if len(args) == 2 {
				url = args[1]
			}
			ok, err := r.Downloader.IsAvailable(cmd.Context(), id, url)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Transcript available for %s (%s)\n", id, r.Downloader.Method())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "No transcript available for %s (%s)\n", id, r.Downloader.Method())
			}
			return nil
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
