package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/oncallkb/internal/api"
	"github.com/MikeSquared-Agency/oncallkb/internal/config"
	"github.com/MikeSquared-Agency/oncallkb/internal/hermes"
	"github.com/MikeSquared-Agency/oncallkb/internal/pipeline"
	"github.com/MikeSquared-Agency/oncallkb/internal/processor"
	"github.com/MikeSquared-Agency/oncallkb/internal/slack"
	"github.com/MikeSquared-Agency/oncallkb/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and NATS consumer",
		Long: `Run oncallkb as a service. Configuration comes from the environment:

  ONCALLKB_PORT            HTTP port (default 8760)
  ONCALLKB_API_TOKEN       bearer token for /api/v1 routes (unset disables auth)
  ONCALLKB_MAX_BODY_BYTES  request body limit (default 10MiB)
  ONCALLKB_CATALOG         catalog YAML path
  DATABASE_URL             Postgres URL; runs are persisted when set
  NATS_URL, NATS_TOKEN     NATS connection; exports are consumed when set
  SLACK_BOT_TOKEN, SLACK_DIGEST_CHANNEL  digest posting when both are set
  LOG_LEVEL                debug, info, warn or error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel, os.Stdout)

	slog.Info("oncallkb starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		return err
	}

	var deps processor.Deps
	opts := api.Options{
		Port:         cfg.Port,
		APIToken:     cfg.APIToken,
		MaxBodyBytes: int64(cfg.MaxBodyBytes),
	}

	// Database (optional — runs are not persisted without it)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			return err
		}
		deps.Store = db
		opts.Runs = db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — runs will not be persisted")
	}

	// NATS/Hermes (optional)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			return err
		}
		defer hermesClient.Close()
		deps.Publisher = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Slack digest (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		deps.Digest = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack digest ready", "channel", cfg.SlackChannel)
	}

	proc := processor.New(pipeline.New(cat, slog.Default()), deps, slog.Default())

	if hermesClient != nil {
		if err := hermesClient.Subscribe(hermes.SubjectTranscriptExported, proc.HandleTranscriptExported); err != nil {
			slog.Error("failed to subscribe to transcript exports", "error", err)
			return err
		}
	}

	srv := api.NewServer(proc, opts)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	slog.Info("oncallkb ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			slog.Error("HTTP server error", "error", err)
			return err
		}
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	if hermesClient != nil {
		if err := hermesClient.Drain(shutdownCtx); err != nil {
			slog.Warn("NATS drain incomplete", "error", err)
		}
	}

	cancel()
	slog.Info("oncallkb stopped")
	return nil
}
