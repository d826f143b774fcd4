// Package tasks defines the scheduled jobs of the bot.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/plexdiscordbot/internal/database"
)

// Syncer runs one library sync cycle.
type Syncer interface {
	Sync(ctx context.Context) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Syncer Syncer
	// Store is nil when state persistence is disabled.
	Store database.Store

	SyncInterval        time.Duration
	MaintenanceSchedule string
}
