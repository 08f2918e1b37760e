package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ytcurate/pipeline"
)

func newUpdateCommand(a *app) *cobra.Command {
	var downloadTranscripts bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Add newly published videos to the master list",
		Long: `Fetch the newest MAX_VIDEOS_PER_UPDATE videos with the configured method
and append the ones not yet in the master list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.runner(cmd.Context())
			if err != nil {
				return err
			}
			bar := attachProgress(cmd, r, "transcripts")
			res, err := r.Update(cmd.Context(), pipeline.UpdateOptions{DownloadTranscripts: downloadTranscripts})
			bar.Finish()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Updated {
				fmt.Fprintf(out, "No new videos (%d in master list)\n", res.TotalVideos)
			} else {
				fmt.Fprintf(out, "Added %d new videos (%d in master list)\n", len(res.NewVideos), res.TotalVideos)
				for _, v := range res.NewVideos {
					fmt.Fprintf(out, "  %s  %s  %s\n", v.VideoID, v.UploadDate, v.Title)
				}
			}
			if res.Transcripts != nil {
				printBatch(out, *res.Transcripts)
			}
			if downloadTranscripts {
				return printStats(cmd, r)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&downloadTranscripts, "download-transcripts", false, "Download transcripts for the new videos")
	return cmd
}

func newRebuildCommand(a *app) *cobra.Command {
	var (
		noPreserve          bool
		downloadTranscripts bool
		maxTranscripts      int
		force               bool
	)

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the master list from a full channel fetch",
		Long: `Replace the master list with a fresh fetch of up to 1000 videos.

A timestamped backup is written first. Categories, relevance scores, notes,
key topics and transcript links are carried over unless --no-preserve is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				ok, err := confirmRebuild(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Rebuild cancelled")
					return nil
				}
			}

			r, err := a.runner(cmd.Context())
			if err != nil {
				return err
			}
			bar := attachProgress(cmd, r, "transcripts")
			res, err := r.Rebuild(cmd.Context(), pipeline.RebuildOptions{
				PreserveManual:      !noPreserve,
				DownloadTranscripts: downloadTranscripts,
				MaxTranscripts:      maxTranscripts,
			})
			bar.Finish()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rebuilt master list with %d videos\n", res.TotalVideos)
			if res.BackupPath != "" {
				fmt.Fprintf(out, "Backup: %s\n", res.BackupPath)
			}
			if res.PreserveManual {
				fmt.Fprintf(out, "Preserved categories for %d videos\n", res.Preserved)
			}
			if res.Transcripts != nil {
				printBatch(out, *res.Transcripts)
				return printStats(cmd, r)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPreserve, "no-preserve", false, "Discard curator fields of the previous list")
	cmd.Flags().BoolVar(&downloadTranscripts, "download-transcripts", false, "Download transcripts for all videos after the rebuild")
	cmd.Flags().IntVar(&maxTranscripts, "max-transcripts", 0, "Cap the transcript downloads (0 = no cap)")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")
	return cmd
}

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check settings and both configured methods against the live service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			s, err := a.settings()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Settings: %s\n", s.Path)
			for _, w := range s.Warnings {
				fmt.Fprintf(out, "  warning: %s\n", w)
			}

			r, err := a.runner(cmd.Context())
			if err != nil {
				return err
			}
			checks, err := r.Validate(cmd.Context())
			for _, c := range checks {
				mark := "ok"
				if !c.OK {
					mark = "FAIL"
				}
				fmt.Fprintf(out, "  [%s] %s: %s\n", mark, c.Name, c.Detail)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}

func printBatch(w io.Writer, b pipeline.BatchResult) {
	fmt.Fprintf(w, "Transcripts: %d downloaded, %d unavailable, %d failed of %d\n",
		b.Success, b.Unavailable, b.Failed, b.Total)
}

func printStats(cmd *cobra.Command, r *pipeline.Runner) error {
	stats, err := r.Store.TranscriptStats(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Transcript coverage: %d/%d videos (%.1f%%)\n",
		stats.FilesExist, stats.TotalVideos, stats.Coverage())
	return nil
}
