package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/edgard/plexdiscordbot/internal/database"
	"github.com/edgard/plexdiscordbot/internal/discord"
	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
	"github.com/edgard/plexdiscordbot/internal/format"
	"github.com/edgard/plexdiscordbot/internal/library"
	"github.com/edgard/plexdiscordbot/internal/metrics"
)

// Fetcher reads the current catalog.
type Fetcher interface {
	Fetch(ctx context.Context) (library.Catalog, error)
}

// Publisher replaces the live listing.
type Publisher interface {
	Publish(ctx context.Context, listing format.Listing, previous []discord.PostedMessage, mode discord.Mode) ([]discord.PostedMessage, error)
}

// StateStore persists State between restarts.
type StateStore interface {
	LoadState(ctx context.Context) (database.State, bool, error)
	SaveState(ctx context.Context, state database.State) error
}

const saveTimeout = 10 * time.Second

// Outcome classifies a finished cycle.
type Outcome string

const (
	OutcomeSkipped       Outcome = metrics.OutcomeSkipped
	OutcomeUnchanged     Outcome = metrics.OutcomeUnchanged
	OutcomePublished     Outcome = metrics.OutcomePublished
	OutcomePublishFailed Outcome = metrics.OutcomeFailed
)

// CycleResult reports what one cycle did.
type CycleResult struct {
	ID       string
	Outcome  Outcome
	Mode     discord.Mode
	NewItems []library.Item
	Removed  []library.Item
	Err      error
}

// SyncerOptions configures a Syncer.
type SyncerOptions struct {
	// Interval is shown in the listing as the time until the next check.
	Interval      time.Duration
	MaxMessageLen int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Syncer runs the fetch, diff, format and publish cycle against its State.
type Syncer struct {
	fetcher   Fetcher
	publisher Publisher
	store     StateStore
	metrics   metrics.Recorder
	opts      SyncerOptions
	log       *slog.Logger

	mu    sync.Mutex
	state State
}

// NewSyncer creates a Syncer with an empty State. store and recorder may be nil.
func NewSyncer(fetcher Fetcher, publisher Publisher, store StateStore, recorder metrics.Recorder, opts SyncerOptions, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Syncer{
		fetcher:   fetcher,
		publisher: publisher,
		store:     store,
		metrics:   recorder,
		opts:      opts,
		log:       logger.With("component", "syncer"),
		state:     State{Snapshot: library.NewSnapshot(nil)},
	}
}

// State returns a copy of the current state.
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Restore loads persisted state, if a store is configured and has any.
func (s *Syncer) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	rec, found, err := s.store.LoadState(ctx)
	if err != nil {
		return err
	}
	if !found {
		s.log.InfoContext(ctx, "No saved state, starting fresh")
		return nil
	}

	s.mu.Lock()
	s.state = stateFromRecord(rec)
	s.mu.Unlock()

	s.log.InfoContext(ctx, "Restored saved state",
		"items", len(rec.Items), "posted", len(rec.Posted), "dirty", rec.Dirty)
	return nil
}

// Sync runs one cycle and returns its error, for use as a scheduled task.
func (s *Syncer) Sync(ctx context.Context) error {
	return s.RunCycle(ctx).Err
}

// RunCycle performs one fetch, diff, format and publish pass. Cycles are
// serialized.
func (s *Syncer) RunCycle(ctx context.Context) CycleResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res := CycleResult{ID: ulid.Make().String()}
	log := s.log.With("cycle_id", res.ID)
	defer func() {
		s.metrics.ObserveCycle(string(res.Outcome), time.Since(start))
	}()

	log.DebugContext(ctx, "Fetching catalog")
	catalog, err := s.fetcher.Fetch(ctx)
	if err != nil {
		if !apperrors.IsFetch(err) {
			err = apperrors.NewFetchError("failed to fetch catalog", err)
		}
		log.ErrorContext(ctx, "Failed to fetch catalog, keeping previous state", "error", err)
		s.metrics.IncFetchErrors()
		res.Outcome = OutcomeSkipped
		res.Err = err
		return res
	}

	items := catalog.All()
	snapshot := library.NewSnapshot(items)
	res.NewItems = library.Diff(items, s.state.Snapshot)
	res.Removed = library.Removed(items, s.state.Snapshot)
	changed := len(res.NewItems) > 0 || len(res.Removed) > 0

	bySection := library.BySection(snapshot.Items())
	for _, section := range library.Sections {
		s.metrics.SetLibraryItems(section.String(), len(bySection[section]))
	}
	s.metrics.AddNewItems(len(res.NewItems))

	if !changed && len(s.state.Posted) > 0 && !s.state.Dirty {
		s.state.Snapshot = snapshot
		res.Outcome = OutcomeUnchanged
		log.InfoContext(ctx, "Catalog unchanged, listing left as is", "items", snapshot.Len())
		return res
	}

	res.Mode = discord.ModeEdit
	if len(res.NewItems) > 0 || len(s.state.Posted) == 0 {
		res.Mode = discord.ModeRepost
	}

	listing := format.Format(items, res.NewItems, format.Options{
		Now:           s.opts.Now(),
		NextCheck:     s.opts.Interval,
		MaxMessageLen: s.opts.MaxMessageLen,
	})

	log.InfoContext(ctx, "Publishing listing",
		"mode", res.Mode.String(),
		"items", snapshot.Len(),
		"new", len(res.NewItems),
		"removed", len(res.Removed),
		"messages", listing.MessageCount())

	posted, pubErr := s.publisher.Publish(ctx, listing, s.state.Posted, res.Mode)
	if pubErr != nil && !apperrors.IsPublish(pubErr) {
		pubErr = apperrors.NewPublishError("failed to publish listing", pubErr)
	}
	s.state = State{Snapshot: snapshot, Posted: posted, Dirty: pubErr != nil}

	if pubErr != nil {
		log.ErrorContext(ctx, "Failed to publish listing, will retry next cycle",
			"error", pubErr, "live_messages", len(posted))
		s.metrics.IncPublishErrors()
		res.Outcome = OutcomePublishFailed
		res.Err = pubErr
	} else {
		res.Outcome = OutcomePublished
	}

	s.persist(ctx, log)
	return res
}

// persist saves the state even when ctx was cancelled mid-cycle, so messages
// that were posted before shutdown stay tracked.
func (s *Syncer) persist(ctx context.Context, log *slog.Logger) {
	if s.store == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := s.store.SaveState(saveCtx, s.state.record()); err != nil {
		log.ErrorContext(ctx, "Failed to save state", "error", err)
	}
}
