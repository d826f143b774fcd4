// Package bot implements the sync cycle, its scheduling and the lifecycle of
// the running bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Gateway is the long-lived chat connection.
type Gateway interface {
	Run(ctx context.Context) error
	Ready() <-chan struct{}
}

// MetricsServer serves instrumentation until ctx is cancelled.
type MetricsServer interface {
	Serve(ctx context.Context, addr string, logger *slog.Logger) error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	root        *slog.Logger
	logger      *slog.Logger
	gateway     Gateway
	scheduler   *Scheduler
	metrics     MetricsServer
	metricsAddr string
}

// NewBot wires the running components. metrics may be nil, in which case no
// listener is started.
func NewBot(logger *slog.Logger, gateway Gateway, scheduler *Scheduler, metrics MetricsServer, metricsAddr string) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		root:        logger,
		logger:      logger.With("component", "bot_orchestrator"),
		gateway:     gateway,
		scheduler:   scheduler,
		metrics:     metrics,
		metricsAddr: metricsAddr,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Discord gateway...")
		if err := b.gateway.Run(gCtx); err != nil {
			return fmt.Errorf("discord gateway failed: %w", err)
		}
		b.logger.Info("Discord gateway stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Discord gateway stopped unexpectedly without context cancellation.")
			return fmt.Errorf("discord gateway stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-b.gateway.Ready():
		case <-gCtx.Done():
			return nil
		}

		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(gCtx); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	if b.metrics != nil && b.metricsAddr != "" {
		g.Go(func() error {
			if err := b.metrics.Serve(gCtx, b.metricsAddr, b.root); err != nil {
				return fmt.Errorf("metrics listener failed: %w", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
