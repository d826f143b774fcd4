package database

import (
	"database/sql"
	"time"

	"github.com/samber/mo"

	"github.com/edgard/plexdiscordbot/internal/discord"
	"github.com/edgard/plexdiscordbot/internal/library"
)

// LibraryItem is one row of the persisted snapshot.
type LibraryItem struct {
	ID        uint          `db:"id"`
	Section   string        `db:"section"`
	Title     string        `db:"title"`
	Year      sql.NullInt64 `db:"year"`
	RatingKey string        `db:"rating_key"`
	AddedAt   sql.NullTime  `db:"added_at"`
}

// PostedMessage is one live listing message, ordered by Position.
type PostedMessage struct {
	Position  int       `db:"position"`
	ChannelID string    `db:"channel_id"`
	MessageID string    `db:"message_id"`
	PostedAt  time.Time `db:"posted_at"`
}

// SyncState is the single-row bookkeeping table.
type SyncState struct {
	ID        int       `db:"id"`
	Dirty     bool      `db:"dirty"`
	UpdatedAt time.Time `db:"updated_at"`
}

// State is the persisted form of the bot state.
type State struct {
	Items  []library.Item
	Posted []discord.PostedMessage
	Dirty  bool
}

func fromItem(it library.Item) LibraryItem {
	row := LibraryItem{
		Section:   it.Section.String(),
		Title:     it.Title,
		RatingKey: it.RatingKey,
	}
	if year, ok := it.Year.Get(); ok {
		row.Year = sql.NullInt64{Int64: int64(year), Valid: true}
	}
	if !it.AddedAt.IsZero() {
		row.AddedAt = sql.NullTime{Time: it.AddedAt.UTC(), Valid: true}
	}
	return row
}

func (r LibraryItem) toItem() (library.Item, error) {
	section, err := library.ParseSection(r.Section)
	if err != nil {
		return library.Item{}, err
	}
	it := library.Item{
		Title:     r.Title,
		Year:      mo.None[int](),
		Section:   section,
		RatingKey: r.RatingKey,
	}
	if r.Year.Valid {
		it.Year = mo.Some(int(r.Year.Int64))
	}
	if r.AddedAt.Valid {
		it.AddedAt = r.AddedAt.Time.UTC()
	}
	return it, nil
}
