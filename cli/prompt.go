package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ytcurate/pipeline"
	"ytcurate/storage"
)

// errConfirmationRequired is returned when a rebuild needs confirmation but
// stdin is not a terminal.
var errConfirmationRequired = errors.New("rebuild needs confirmation: run on a terminal or pass --force")

const rebuildWarning = `WARNING: MASTER LIST REBUILD

This replaces the master list with a fresh fetch of the channel.
  - a timestamped backup of the current list is written first
  - categories, scores, notes and transcript links are preserved
    unless --no-preserve is given
  - manual edits to any other field are lost
`

// confirmRebuild asks for a yes/no answer on in. It refuses to guess when
// in is not an interactive terminal.
func confirmRebuild(in io.Reader, out io.Writer) (bool, error) {
	if !isTerminal(in) {
		return false, errConfirmationRequired
	}
	return askYesNo(in, out, rebuildWarning+"\nAre you sure you want to proceed? (yes/no): ")
}

// askYesNo repeats the prompt until the answer is yes/y or no/n.
// End of input counts as no.
func askYesNo(in io.Reader, out io.Writer, prompt string) (bool, error) {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, prompt)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		}
		fmt.Fprint(out, "Please enter 'yes' or 'no': ")
	}
	return false, scanner.Err()
}

// attachProgress advances a progress bar on every transcript attempt of the
// runner's batches. The bar is silent unless stderr is a terminal and draws
// nothing before the first attempt.
func attachProgress(cmd *cobra.Command, r *pipeline.Runner, description string) *progressbar.ProgressBar {
	bar := newProgressBar(cmd.ErrOrStderr(), -1, description)
	r.OnTranscript = func(_ storage.Video, _ pipeline.Outcome) {
		bar.Add(1)
	}
	return bar
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	if !isTerminal(w) {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
