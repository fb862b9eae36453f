// Package cli implements the memobox command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/conorfennell/memobox/internal/config"
	"github.com/conorfennell/memobox/internal/leitner"
	"github.com/conorfennell/memobox/internal/review"
	"github.com/conorfennell/memobox/internal/storage"
	"github.com/conorfennell/memobox/internal/sync"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string
	rootCmd := &cobra.Command{
		Use:           "memobox",
		Short:         "Leitner-box vocabulary trainer",
		Long:          "Memobox schedules flashcard recall with a Leitner ladder and serves it over a JSON API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file")
	pf.String("db", "", "Path to SQLite database file (overrides MEMOBOX_DATABASE_PATH)")
	pf.String("addr", "", "HTTP listen address")
	pf.IntSlice("ladder", nil, "Recall ladder in days, e.g. 1,3,7,14,30,90")
	pf.Int("attempts", 0, "Attempts for a recall that loses a concurrent update")
	pf.String("repos", "", "Directory for git source checkouts")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(&configPath),
		newLanguageCmd(&configPath),
		newBoxCmd(&configPath),
		newCardCmd(&configPath),
		newDueCmd(&configPath),
		newRecallCmd(&configPath),
		newSourceCmd(&configPath),
		newSyncCmd(&configPath),
	)
	return rootCmd
}

// app bundles what a command needs once configuration is resolved.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *storage.DB
	clock   review.Clock
	reviews *review.Service
	syncer  *sync.Syncer
}

func openApp(cmd *cobra.Command, configPath string) (*app, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger()

	ladder, err := cfg.RecallLadder()
	if err != nil {
		return nil, fmt.Errorf("build ladder: %w", err)
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	clock := review.SystemClock{}
	reviews := review.NewService(db, leitner.NewScheduler(ladder),
		review.WithClock(clock),
		review.WithLogger(logger),
		review.WithMaxAttempts(cfg.Review.Attempts),
	)
	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		clock:   clock,
		reviews: reviews,
		syncer:  sync.New(db, logger, clock, cfg.Sync.Repos),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// withApp wraps a command body that needs an open app.
func withApp(configPath *string, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, *configPath)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}
