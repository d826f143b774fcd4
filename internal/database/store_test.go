package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/plexdiscordbot/internal/discord"
	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
	"github.com/edgard/plexdiscordbot/internal/library"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestLoadStateEmpty(t *testing.T) {
	t.Parallel()

	db, _ := openTestDB(t)
	store := NewStore(db.DB, nil)

	state, found, err := store.LoadState(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, state.Items)
}

func TestSaveAndLoadState(t *testing.T) {
	t.Parallel()

	db, _ := openTestDB(t)
	store := NewStore(db.DB, nil)
	ctx := context.Background()

	added := time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)
	want := State{
		Items: []library.Item{
			{Title: "Inception", Year: mo.Some(2010), Section: library.Movie, RatingKey: "101", AddedAt: added},
			{Title: "Baraka", Year: mo.None[int](), Section: library.Movie},
			{Title: "Dark", Year: mo.Some(2017), Section: library.Show, RatingKey: "201"},
		},
		Posted: []discord.PostedMessage{
			{ChannelID: "chan", MessageID: "m1"},
			{ChannelID: "chan", MessageID: "m2"},
		},
		Dirty: true,
	}
	require.NoError(t, store.SaveState(ctx, want))

	got, found, err := store.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestSaveStateReplacesPrevious(t *testing.T) {
	t.Parallel()

	db, _ := openTestDB(t)
	store := NewStore(db.DB, nil)
	ctx := context.Background()

	require.NoError(t, store.SaveState(ctx, State{
		Items:  []library.Item{{Title: "Heat", Year: mo.Some(1995), Section: library.Movie}},
		Posted: []discord.PostedMessage{{ChannelID: "chan", MessageID: "old"}},
		Dirty:  true,
	}))
	require.NoError(t, store.SaveState(ctx, State{
		Items: []library.Item{{Title: "Dune", Year: mo.Some(2021), Section: library.Movie}},
	}))

	got, found, err := store.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Dune", got.Items[0].Title)
	assert.Empty(t, got.Posted)
	assert.False(t, got.Dirty)
}

func TestSaveStateLargeCatalog(t *testing.T) {
	t.Parallel()

	db, _ := openTestDB(t)
	store := NewStore(db.DB, nil)
	ctx := context.Background()

	items := make([]library.Item, 0, 1234)
	for i := 0; i < 1234; i++ {
		items = append(items, library.Item{Title: fmt.Sprintf("Title %04d", i), Year: mo.Some(2000 + i%25), Section: library.Show})
	}
	require.NoError(t, store.SaveState(ctx, State{Items: items}))

	got, _, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1234)
	assert.True(t, library.NewSnapshot(items).Equal(library.NewSnapshot(got.Items)))
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, NewStore(db.DB, nil).SaveState(ctx, State{
		Items: []library.Item{{Title: "Heat", Year: mo.Some(1995), Section: library.Movie}},
	}))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	got, found, err := NewStore(db.DB, nil).LoadState(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, got.Items, 1)
}

func TestNewDBRejectsSecondInstance(t *testing.T) {
	t.Parallel()

	_, path := openTestDB(t)

	_, err := NewDB(path)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabase, apperrors.Code(err))
	assert.Contains(t, err.Error(), "in use by another instance")
}

func TestPingAndMaintenance(t *testing.T) {
	t.Parallel()

	db, _ := openTestDB(t)
	store := NewStore(db.DB, nil)

	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.RunSQLMaintenance(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.RunSQLMaintenance(ctx), context.Canceled)
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"state.db", "state.db"},
		{"file:state.db", "state.db"},
		{"file:/data/my%20state.db?_pragma=busy_timeout(5000)", "/data/my state.db"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractDBNameFromPath(tt.in))
		})
	}
}

func TestPingClosedDatabase(t *testing.T) {
	t.Parallel()

	db, err := NewDB(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	store := NewStore(db.DB, nil)
	require.NoError(t, db.Close())

	err = store.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabase, apperrors.Code(err))
}
