// Package database persists the bot state (last snapshot and live listing
// messages) in SQLite so restarts neither repost nor misdetect new items.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
	"github.com/edgard/plexdiscordbot/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// DB is an open state database together with the lock that makes this
// process its only writer.
type DB struct {
	*sqlx.DB
	lock *flock.Flock
}

// NewDB locks, opens and migrates the SQLite database at dbPath.
func NewDB(dbPath string) (*DB, error) {
	dbName := ExtractDBNameFromPath(dbPath)

	lock := flock.New(dbName + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to lock state database", err)
	}
	if !locked {
		return nil, apperrors.NewDatabaseError(
			fmt.Sprintf("state database %s is in use by another instance", dbName), nil)
	}

	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		unlock(lock)
		return nil, apperrors.NewDatabaseError("failed to connect to database", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := ApplyMigrations(db.DB, dbName); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing database after migration failure", "error", closeErr)
		}
		unlock(lock)
		return nil, apperrors.NewDatabaseError("failed to apply migrations", err)
	}

	slog.Info("Database connected and migrations applied successfully", "path", dbName)
	return &DB{DB: db, lock: lock}, nil
}

// Close closes the connection pool and releases the instance lock.
func (d *DB) Close() error {
	if d == nil {
		return nil
	}
	err := d.DB.Close()
	unlock(d.lock)
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	slog.Info("Database connection closed successfully.")
	return nil
}

func unlock(lock *flock.Flock) {
	if err := lock.Unlock(); err != nil {
		slog.Error("Error releasing state database lock", "path", lock.Path(), "error", err)
	}
}

// ApplyMigrations runs database migrations using embedded files.
func ApplyMigrations(db *sql.DB, dbName string) error {
	if db == nil {
		return errors.New("database connection is nil, cannot apply migrations")
	}
	if dbName == "" {
		return errors.New("database name/path for migration driver is empty")
	}

	slog.Info("Applying database migrations...", "database_name", dbName)

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver instance: %w", err)
	}

	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite database driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database migrations applied successfully.")
	return nil
}

// ExtractDBNameFromPath extracts the database file path from a possibly
// URL-formatted DSN such as "file:state.db?_pragma=busy_timeout(5000)".
func ExtractDBNameFromPath(path string) string {
	path = strings.TrimPrefix(path, "file:")

	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}

	return path
}
