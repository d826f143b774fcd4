package tasks

import (
	"context"
	"time"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// Task is a named job and when it runs. Exactly one of Interval and Cron is set.
type Task struct {
	Name string
	Run  ScheduledTaskFunc

	// Interval runs the task every Interval, starting immediately.
	Interval time.Duration
	// Cron is a five-field crontab expression.
	Cron string
}

const (
	LibrarySync      = "library_sync"
	StateMaintenance = "state_maintenance"
)

// RegisterAllTasks returns the tasks enabled by deps.
func RegisterAllTasks(deps TaskDeps) []Task {
	tasks := []Task{{
		Name:     LibrarySync,
		Run:      newLibrarySyncTask(deps),
		Interval: deps.SyncInterval,
	}}

	if deps.Store != nil && deps.MaintenanceSchedule != "" {
		tasks = append(tasks, Task{
			Name: StateMaintenance,
			Run:  newSQLMaintenanceTask(deps),
			Cron: deps.MaintenanceSchedule,
		})
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
