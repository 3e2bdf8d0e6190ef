package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/oncallkb/internal/backfill"
	"github.com/MikeSquared-Agency/oncallkb/internal/config"
	"github.com/MikeSquared-Agency/oncallkb/internal/pipeline"
	"github.com/MikeSquared-Agency/oncallkb/internal/printer"
	"github.com/MikeSquared-Agency/oncallkb/internal/processor"
	"github.com/MikeSquared-Agency/oncallkb/internal/store"
)

type backfillOptions struct {
	dir         string
	pattern     string
	since       string
	statePath   string
	catalogPath string
	dryRun      bool
}

func newBackfillCmd() *cobra.Command {
	opts := &backfillOptions{}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Analyze every export in a directory, skipping ones already seen",
		Long: `Walk a directory of Slack thread exports and analyze each file that has
not been processed before. Progress is kept in a state file so the command can
be re-run safely.

An export whose threads mostly (80%+) match an already processed export is
recorded as a duplicate and not analyzed again.

Runs are persisted to Postgres when DATABASE_URL is set.

Examples:
  oncallkb backfill --dir ./exports
  oncallkb backfill --dir ./exports --since 2026-01-01 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory of exports to walk")
	cmd.Flags().StringVar(&opts.pattern, "pattern", "*.md", "File name glob to match")
	cmd.Flags().StringVar(&opts.since, "since", "", "Only files modified on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.statePath, "state", backfill.DefaultStatePath, "State file tracking processed exports")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "YAML catalog overriding services, bots and key terms")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Analyze without persisting runs or state")

	return cmd
}

func runBackfill(cmd *cobra.Command, opts *backfillOptions) error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel, cmd.ErrOrStderr())

	if opts.dir == "" {
		return printer.Error(
			"no directory given",
			"backfill needs a directory of exports to walk.",
			[]string{"Pass it with --dir"},
		)
	}

	var since time.Time
	if opts.since != "" {
		t, err := time.Parse("2006-01-02", opts.since)
		if err != nil {
			return printer.Error("invalid --since", err.Error(), []string{"Use a date like 2026-01-01"})
		}
		since = t
	}

	cat, err := loadCatalog(opts.catalogPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var deps processor.Deps
	if cfg.DatabaseURL != "" && !opts.dryRun {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return printer.Error("failed to connect to database", err.Error(), []string{"Check DATABASE_URL, or use --dry-run"})
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return printer.Error("failed to migrate database", err.Error(), nil)
		}
		deps.Store = db
	}

	proc := processor.New(pipeline.New(cat, slog.Default()), deps, slog.Default())
	runner := backfill.NewRunner(backfill.Config{
		Dir:       opts.dir,
		Pattern:   opts.pattern,
		Since:     since,
		DryRun:    opts.dryRun,
		StatePath: opts.statePath,
	}, proc, slog.Default())

	prevOut := printer.Out
	printer.Out = cmd.OutOrStdout()
	defer func() { printer.Out = prevOut }()

	printer.Step("Scanning %s\n", opts.dir)
	sum, err := runner.Run(ctx)
	if sum != nil {
		printer.Heading("\n=== Backfill Summary ===")
		printer.Info("%s", backfill.FormatSummary(sum))
	}
	if err != nil {
		return printer.Error("backfill stopped", err.Error(), nil)
	}

	if opts.dryRun {
		printer.Warning("Dry run: nothing was persisted\n")
	} else {
		printer.Success("State saved to %s\n", sum.StatePath)
	}
	if sum.Errors > 0 {
		printer.Warning("%d export(s) failed and will be retried next run\n", sum.Errors)
	}
	return nil
}
