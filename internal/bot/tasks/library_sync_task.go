package tasks

import (
	"context"
)

// newLibrarySyncTask refreshes the channel listing from the media server.
// The syncer logs the cycle itself.
func newLibrarySyncTask(deps TaskDeps) ScheduledTaskFunc {
	return func(ctx context.Context) error {
		return deps.Syncer.Sync(ctx)
	}
}
