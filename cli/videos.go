package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ytcurate/storage"
)

func newVideosCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "videos",
		Short: "Curate the master list",
	}
	cmd.AddCommand(
		newListUncategorizedCommand(a),
		newCategorizeCommand(a),
		newPriorityCommand(a),
		newReportCommand(a),
		newInteractiveCommand(a),
		newMigrateCommand(a),
	)
	return cmd
}

func newListUncategorizedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-uncategorized",
		Short: "List videos still waiting for categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			videos, err := a.store(s).ListUncategorized(cmd.Context())
			if err != nil {
				return err
			}
			if len(videos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No uncategorized videos")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUPLOADED\tTITLE")
			for _, v := range videos {
				fmt.Fprintf(w, "%s\t%s\t%s\n", v.VideoID, v.UploadDate, truncate(v.Title, 60))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d uncategorized videos\n", len(videos))
			return nil
		},
	}
}

func newCategorizeCommand(a *app) *cobra.Command {
	var (
		categories string
		relevance  int
		notes      string
	)
	cmd := &cobra.Command{
		Use:   "categorize <video-id>",
		Short: "Assign categories, relevance and notes to a video",
		Example: `  ytcurate videos categorize dQw4w9WgXcQ --categories theology,debate --relevance 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			c := storage.Categorization{Categories: splitCategories(categories), Notes: notes}
			if cmd.Flags().Changed("relevance") {
				c.RelevanceScore = &relevance
			}
			warnUnknownCategories(a, s.DefaultCategories, c.Categories)

			found, err := a.store(s).Categorize(cmd.Context(), args[0], c)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("video %s not in master list: %w", args[0], storage.ErrNotFound)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Categorized %s: %s\n", args[0], strings.Join(c.Categories, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&categories, "categories", "", "Comma-separated categories")
	cmd.Flags().IntVar(&relevance, "relevance", 0, "Relevance score from 1 to 10")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes about the video")
	cmd.MarkFlagRequired("categories")
	return cmd
}

func newPriorityCommand(a *app) *cobra.Command {
	var (
		category  string
		relevance int
	)
	cmd := &cobra.Command{
		Use:   "priority <video-id>",
		Short: "Mark a video as priority and categorize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			warnUnknownCategories(a, s.DefaultCategories, []string{category})
			found, err := a.store(s).MarkPriority(cmd.Context(), args[0], category, relevance)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("video %s not in master list: %w", args[0], storage.ErrNotFound)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as priority (%s, relevance %d)\n", args[0], category, relevance)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Category of the priority video")
	cmd.Flags().IntVar(&relevance, "relevance", 10, "Relevance score from 1 to 10")
	cmd.MarkFlagRequired("category")
	return cmd
}

func newReportCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise statuses, categories and relevance scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			r, err := a.store(s).BuildReport(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}

			fmt.Fprintf(out, "Channel:       %s\n", r.ChannelURL)
			fmt.Fprintf(out, "Total videos:  %d\n", r.TotalVideos)
			fmt.Fprintf(out, "Last updated:  %s\n", r.LastUpdated)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\nStatus")
			for _, c := range r.Statuses {
				fmt.Fprintf(w, "  %s\t%d\n", c.Label, c.Count)
			}
			if len(r.Categories) > 0 {
				fmt.Fprintln(w, "\nCategory")
				for _, c := range r.Categories {
					fmt.Fprintf(w, "  %s\t%d\n", c.Label, c.Count)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if r.ScoredVideos > 0 {
				fmt.Fprintf(out, "\nRelevance: average %.1f over %d/%d videos\n", r.AverageRelevance, r.ScoredVideos, r.TotalVideos)
			}
			if len(r.Recent) > 0 {
				fmt.Fprintln(out, "\nRecent videos")
				for _, v := range r.Recent {
					mark := " "
					if v.Status == storage.StatusCategorized {
						mark = "x"
					}
					fmt.Fprintf(out, "  [%s] %s (%s)\n", mark, truncate(v.Title, 50), v.UploadDate)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func newInteractiveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Walk through uncategorized videos and categorize them one by one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			store := a.store(s)
			videos, err := store.ListUncategorized(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(videos) == 0 {
				fmt.Fprintln(out, "No uncategorized videos")
				return nil
			}
			fmt.Fprintf(out, "%d uncategorized videos\n", len(videos))

			done, err := categorizeInteractively(cmd.Context(), cmd.InOrStdin(), out, store, videos, func(c []string) {
				warnUnknownCategories(a, s.DefaultCategories, c)
			})
			fmt.Fprintf(out, "\nCategorized %d of %d videos\n", done, len(videos))
			return err
		},
	}
}

// categorizeInteractively offers each video for categorizing, skipping or
// quitting. Invalid answers are reported and the video is skipped. End of
// input stops the walk. It returns the number of videos categorized.
func categorizeInteractively(ctx context.Context, in io.Reader, out io.Writer, store *storage.MasterList, videos []storage.Video, check func([]string)) (int, error) {
	scanner := bufio.NewScanner(in)
	ask := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	done := 0
next:
	for i, v := range videos {
		fmt.Fprintf(out, "\n%d. %s\n", i+1, v.Title)
		fmt.Fprintf(out, "   ID: %s\n   Date: %s\n   URL: %s\n", v.VideoID, v.UploadDate, v.URL)
		fmt.Fprintf(out, "   Description: %s\n", truncate(v.Description, 100))

	choice:
		for {
			answer, ok := ask("[c]ategorize  [s]kip  [q]uit: ")
			if !ok {
				return done, scanner.Err()
			}
			switch strings.ToLower(answer) {
			case "c", "categorize":
				break choice
			case "s", "skip":
				continue next
			case "q", "quit":
				return done, nil
			}
			fmt.Fprintln(out, "Please enter c, s or q")
		}

		line, ok := ask("Categories (comma-separated): ")
		if !ok {
			return done, scanner.Err()
		}
		c := storage.Categorization{Categories: splitCategories(line)}
		if len(c.Categories) == 0 {
			fmt.Fprintln(out, "No categories given, skipped")
			continue
		}
		score, ok := ask("Relevance score (1-10, optional): ")
		if !ok {
			return done, scanner.Err()
		}
		if score != "" {
			n, err := strconv.Atoi(score)
			if err != nil {
				fmt.Fprintf(out, "Relevance %q is not a number, left unset\n", score)
			} else {
				c.RelevanceScore = &n
			}
		}
		if c.Notes, ok = ask("Notes (optional): "); !ok {
			return done, scanner.Err()
		}

		if check != nil {
			check(c.Categories)
		}
		found, err := store.Categorize(ctx, v.VideoID, c)
		if errors.Is(err, storage.ErrInvalidInput) {
			fmt.Fprintf(out, "Skipped %s: %v\n", v.VideoID, err)
			continue
		}
		if err != nil {
			return done, err
		}
		if found {
			done++
			fmt.Fprintf(out, "Categorized %s: %s\n", v.VideoID, strings.Join(c.Categories, ", "))
		}
	}
	return done, nil
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Backfill status and bookkeeping fields on records from older tooling",
		Long: `Records without a status were added by hand and become categorized.
Missing last_checked, title, url and upload_date fields are filled in and the
previous file is kept as the .backup sibling.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			store := a.store(s)
			res, err := store.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Updated %d videos (%d in master list)\n", res.Updated, res.TotalVideos)
			if res.MissingIDs > 0 {
				fmt.Fprintf(out, "warning: %d videos have no video_id\n", res.MissingIDs)
			}
			fmt.Fprintf(out, "Backup: %s\n", store.BackupPath())
			return nil
		},
	}
}

func splitCategories(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// warnUnknownCategories logs categories outside DEFAULT_CATEGORIES. They
// are still accepted.
func warnUnknownCategories(a *app, known, given []string) {
	if len(known) == 0 {
		return
	}
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}
	for _, g := range given {
		if _, ok := set[g]; !ok {
			a.logger.Warn().Str("category", g).Strs("known", known).Msg("category not in DEFAULT_CATEGORIES")
		}
	}
}
