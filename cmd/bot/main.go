// Package main contains the entrypoint for the Plex library Discord bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgard/plexdiscordbot/internal/bot"
	"github.com/edgard/plexdiscordbot/internal/bot/tasks"
	"github.com/edgard/plexdiscordbot/internal/config"
	"github.com/edgard/plexdiscordbot/internal/database"
	"github.com/edgard/plexdiscordbot/internal/discord"
	"github.com/edgard/plexdiscordbot/internal/logger"
	"github.com/edgard/plexdiscordbot/internal/metrics"
	"github.com/edgard/plexdiscordbot/internal/plex"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components and returns an exit
// code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	// NewLogger also installs the logger as the slog default.
	log := logger.NewLogger(cfg.LogLevel, cfg.LogFormat == "json")
	logger.BridgeDiscordgo(log)
	log.Info("Logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)
	log.Info("Configuration loaded",
		"plex_url", cfg.PlexURL,
		"channel_id", cfg.ChannelID,
		"movies_section", cfg.MoviesSection,
		"tv_section", cfg.TVSection,
		"update_interval_minutes", cfg.UpdateIntervalMinutes,
		"persist_state", cfg.PersistState(),
		"metrics_addr", cfg.MetricsAddr)

	var store database.Store
	if cfg.PersistState() {
		db, err := database.NewDB(cfg.StateDBPath)
		if err != nil {
			log.Error("Failed to open state database", "path", cfg.StateDBPath, "error", err)
			return 1
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing state database", "error", err)
			}
		}()
		store = database.NewStore(db.DB, log)
	} else {
		log.Info("State persistence disabled, state is kept in memory")
	}

	var recorder metrics.Recorder = metrics.Noop{}
	var metricsServer bot.MetricsServer
	if cfg.MetricsAddr != "" {
		provider := metrics.NewProvider()
		if store != nil {
			provider.SetHealthCheck(store.Ping)
		}
		recorder = provider
		metricsServer = provider
	}

	plexClient := plex.NewClient(plex.Options{
		BaseURL:       cfg.PlexURL,
		Token:         cfg.PlexToken,
		MoviesSection: cfg.MoviesSection,
		TVSection:     cfg.TVSection,
		Timeout:       cfg.PlexTimeout,
	}, nil, log)

	session, err := discord.NewSession(cfg.DiscordToken, cfg.ChannelID, logger.DiscordLogLevel(cfg.LogLevel), log)
	if err != nil {
		log.Error("Failed to create Discord session", "error", err)
		return 1
	}
	if err := session.VerifyChannel(ctx); err != nil {
		log.Error("Failed to verify Discord channel", "channel_id", cfg.ChannelID, "error", err)
		return 1
	}
	publisher := discord.NewPublisher(session.API(), cfg.ChannelID, log)

	var stateStore bot.StateStore
	if store != nil {
		stateStore = store
	}
	syncer := bot.NewSyncer(plexClient, publisher, stateStore, recorder, bot.SyncerOptions{
		Interval: cfg.UpdateInterval(),
	}, log)
	if err := syncer.Restore(ctx); err != nil {
		log.Error("Failed to restore saved state", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:              log,
		Syncer:              syncer,
		Store:               store,
		SyncInterval:        cfg.UpdateInterval(),
		MaintenanceSchedule: cfg.StateMaintenanceSchedule,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, session, sched, metricsServer, cfg.MetricsAddr)

	log.Info("Starting bot...",
		"update_interval", cfg.UpdateInterval(),
		"movies_section", cfg.MoviesSection,
		"tv_section", cfg.TVSection)
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
