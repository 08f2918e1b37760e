// Package cli is the ytcurate command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ytcurate/config"
	"ytcurate/internal/logging"
	"ytcurate/internal/metrics"
	"ytcurate/pipeline"
	"ytcurate/storage"
	"ytcurate/youtube"
)

const serviceName = "ytcurate"

// app holds the state shared by all commands of one invocation.
type app struct {
	configPath string
	logLevel   string

	// logger is set by the root pre-run hook.
	logger    zerolog.Logger
	hasLogger bool
	loader    *config.Loader

	// strategyOpts are passed to every strategy constructor.
	strategyOpts []youtube.Option
}

// NewRootCommand builds the ytcurate command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{logger: zerolog.Nop()})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ytcurate",
		Short: "Maintain a curated master list of a YouTube channel's videos",
		Long: `ytcurate keeps a JSON master list of every video on one YouTube channel
together with curator categories and notes, and downloads WebVTT transcripts.

Video listing uses the YouTube Data API or yt-dlp, transcripts use yt-dlp or
the caption track service, as chosen in config.env. There is no fallback
between methods.`,
		Example: `  # Add videos published since the last run
  ytcurate update

  # Add new videos and fetch their transcripts
  ytcurate update --download-transcripts

  # Check the configured methods end to end
  ytcurate validate`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.logger = logging.New(cmd.ErrOrStderr(), a.logLevel, serviceName)
			a.hasLogger = true
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Settings file (default ./config.env, then $XDG_CONFIG_HOME/ytcurate/config.env)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default LOG_LEVEL from settings)")

	root.AddCommand(
		newUpdateCommand(a),
		newRebuildCommand(a),
		newValidateCommand(a),
		newTranscriptsCommand(a),
		newVideosCommand(a),
		newConfigCommand(a),
	)
	return root
}

// Execute runs the command tree until it finishes or the process is
// interrupted. Errors are logged before being returned.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{logger: zerolog.Nop()}
	err := newRootCommand(a).ExecuteContext(ctx)
	if err != nil {
		logger := a.logger
		if !a.hasLogger {
			// Flag parsing failed before the pre-run hook.
			logger = logging.New(os.Stderr, "error", serviceName)
		}
		logger.Error().Err(err).Msg("command failed")
	}
	return err
}

// settings loads and caches the settings for this invocation and applies
// LOG_LEVEL when no --log-level flag was given.
func (a *app) settings() (*config.Settings, error) {
	if a.loader == nil {
		path := config.Locate(a.configPath)
		a.loader = config.NewLoader(path, config.WithLogger(a.logger))
	}
	s, err := a.loader.Load()
	if err != nil {
		return nil, err
	}
	if a.logLevel == "" && s.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(s.LogLevel); err == nil {
			a.logger = a.logger.Level(lvl)
		}
	}
	return s, nil
}

func (a *app) store(s *config.Settings) *storage.MasterList {
	return storage.NewMasterList(s.MasterFile,
		storage.WithChannelURL(s.ChannelURL),
		storage.WithLogger(a.logger),
	)
}

// runner constructs both configured strategies. Construction fails fast on
// an unknown method or missing credential.
func (a *app) runner(ctx context.Context) (*pipeline.Runner, error) {
	s, err := a.settings()
	if err != nil {
		return nil, err
	}
	opts := append([]youtube.Option{youtube.WithLogger(a.logger)}, a.strategyOpts...)

	fetcher, err := youtube.NewFetcher(ctx, s.FetcherConfig(), opts...)
	if err != nil {
		return nil, err
	}
	downloader, err := youtube.NewTranscriptDownloader(s.TranscriptConfig(), opts...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().
		Str("master_method", fetcher.Method()).
		Str("transcript_method", downloader.Method()).
		Str("config", s.Path).
		Msg("strategies ready")

	return &pipeline.Runner{
		Settings:   s,
		Fetcher:    fetcher,
		Downloader: downloader,
		Store:      a.store(s),
		Logger:     a.logger,
		Metrics:    metrics.New(),
	}, nil
}

// isTerminal reports whether stream, a reader or writer, is a terminal.
func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
