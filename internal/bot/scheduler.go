package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/plexdiscordbot/internal/bot/tasks"
)

// Scheduler manages scheduled tasks using the gocron library.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	tasks     []tasks.Task
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a new scheduler instance using gocron.
func NewScheduler(logger *slog.Logger, taskList []tasks.Task) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "scheduler")

	s, err := gocron.NewScheduler(gocron.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		tasks:     taskList,
	}, nil
}

// Start registers every task and starts ticking. ctx is handed to each task
// run, so cancelling it aborts work in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.logger.Debug("Configuring scheduler jobs...")

	for _, task := range s.tasks {
		definition, schedule, err := jobDefinition(task)
		if err != nil {
			return err
		}

		options := []gocron.JobOption{
			gocron.WithName(task.Name),
			// An overdue run is dropped rather than run concurrently.
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		}
		if task.Interval > 0 {
			options = append(options, gocron.WithStartAt(gocron.WithStartImmediately()))
		}

		run := task.Run
		name := task.Name
		_, err = s.scheduler.NewJob(definition, gocron.NewTask(func() {
			s.runTask(ctx, name, run)
		}), options...)
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", task.Name, err)
		}

		s.logger.Info("Scheduled task", "task_name", task.Name, "schedule", schedule)
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler initialized and started", "tasks_scheduled", len(s.tasks))

	return nil
}

func jobDefinition(task tasks.Task) (gocron.JobDefinition, string, error) {
	switch {
	case task.Interval > 0:
		return gocron.DurationJob(task.Interval), "every " + task.Interval.String(), nil
	case task.Cron != "":
		return gocron.CronJob(task.Cron, false), task.Cron, nil
	default:
		return nil, "", fmt.Errorf("task %s has no schedule", task.Name)
	}
}

func (s *Scheduler) runTask(ctx context.Context, name string, run tasks.ScheduledTaskFunc) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Debug("Running scheduled task", "task_name", name)
	startTime := time.Now()
	if err := run(ctx); err != nil {
		s.logger.Error("Scheduled task failed", "task_name", name, "error", err)
	}
	s.logger.Debug("Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	s.logger.Debug("Stopping scheduler gracefully (waiting for jobs)...")
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}
