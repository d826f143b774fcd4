package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/plexdiscordbot/internal/discord"
	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
	"github.com/edgard/plexdiscordbot/internal/library"
)

// Store defines the state persistence operations.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// LoadState returns the persisted state. found is false when nothing has
	// been saved yet.
	LoadState(ctx context.Context) (state State, found bool, err error)

	// SaveState replaces the persisted state in a single transaction.
	SaveState(ctx context.Context, state State) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.NewDatabaseError("database ping failed", err)
	}
	return nil
}

func (s *sqlxStore) LoadState(ctx context.Context) (State, bool, error) {
	var meta SyncState
	err := s.db.GetContext(ctx, &meta, `SELECT id, dirty, updated_at FROM sync_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, apperrors.NewDatabaseError("failed to read sync state", err)
	}

	var rows []LibraryItem
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, section, title, year, rating_key, added_at FROM library_items ORDER BY id`); err != nil {
		return State{}, false, apperrors.NewDatabaseError("failed to read library items", err)
	}

	items := make([]library.Item, 0, len(rows))
	for _, row := range rows {
		it, err := row.toItem()
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping stored item with unknown section",
				"title", row.Title, "section", row.Section)
			continue
		}
		items = append(items, it)
	}

	var posted []PostedMessage
	if err := s.db.SelectContext(ctx, &posted,
		`SELECT position, channel_id, message_id, posted_at FROM posted_messages ORDER BY position`); err != nil {
		return State{}, false, apperrors.NewDatabaseError("failed to read posted messages", err)
	}
	refs := make([]discord.PostedMessage, 0, len(posted))
	for _, p := range posted {
		refs = append(refs, discord.PostedMessage{ChannelID: p.ChannelID, MessageID: p.MessageID})
	}

	s.logger.DebugContext(ctx, "Loaded state",
		"items", len(items), "posted", len(refs), "dirty", meta.Dirty, "saved_at", meta.UpdatedAt)
	return State{Items: items, Posted: refs, Dirty: meta.Dirty}, true, nil
}

func (s *sqlxStore) SaveState(ctx context.Context, state State) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError("failed to begin transaction for state save", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM library_items`); err != nil {
		return apperrors.NewDatabaseError("failed to clear library items", err)
	}
	if len(state.Items) > 0 {
		rows := make([]LibraryItem, 0, len(state.Items))
		for _, it := range state.Items {
			rows = append(rows, fromItem(it))
		}
		// Batches keep each statement under SQLite's bound parameter limit.
		for start := 0; start < len(rows); start += insertBatchSize {
			end := min(start+insertBatchSize, len(rows))
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO library_items (section, title, year, rating_key, added_at)
				 VALUES (:section, :title, :year, :rating_key, :added_at)`, rows[start:end]); err != nil {
				return apperrors.NewDatabaseError("failed to insert library items", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posted_messages`); err != nil {
		return apperrors.NewDatabaseError("failed to clear posted messages", err)
	}
	now := time.Now().UTC()
	for i, ref := range state.Posted {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO posted_messages (position, channel_id, message_id, posted_at) VALUES (?, ?, ?, ?)`,
			i, ref.ChannelID, ref.MessageID, now); err != nil {
			return apperrors.NewDatabaseError("failed to insert posted message", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sync_state (id, dirty, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET dirty = excluded.dirty, updated_at = excluded.updated_at`,
		state.Dirty, now); err != nil {
		return apperrors.NewDatabaseError("failed to update sync state", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseError("failed to commit state save", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "State saved",
		"items", len(state.Items), "posted", len(state.Posted), "dirty", state.Dirty)
	return nil
}

const insertBatchSize = 500

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return apperrors.NewDatabaseError("failed to execute VACUUM", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
