package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edgard/plexdiscordbot/internal/database"
)

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) Sync(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) LoadState(ctx context.Context) (database.State, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(database.State), args.Bool(1), args.Error(2)
}

func (m *mockStore) SaveState(ctx context.Context, state database.State) error {
	return m.Called(ctx, state).Error(0)
}

func (m *mockStore) RunSQLMaintenance(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		store     database.Store
		schedule  string
		wantNames []string
	}{
		{name: "without store", schedule: "0 4 * * *", wantNames: []string{LibrarySync}},
		{name: "with store", store: &mockStore{}, schedule: "0 4 * * *", wantNames: []string{LibrarySync, StateMaintenance}},
		{name: "maintenance disabled", store: &mockStore{}, wantNames: []string{LibrarySync}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := RegisterAllTasks(TaskDeps{
				Logger:              quietLogger(),
				Syncer:              &mockSyncer{},
				Store:               tt.store,
				SyncInterval:        30 * time.Minute,
				MaintenanceSchedule: tt.schedule,
			})

			names := make([]string, 0, len(got))
			for _, task := range got {
				names = append(names, task.Name)
				require.NotNil(t, task.Run)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, 30*time.Minute, got[0].Interval)
			assert.Empty(t, got[0].Cron)
		})
	}
}

func TestLibrarySyncTaskDelegates(t *testing.T) {
	t.Parallel()

	syncer := &mockSyncer{}
	syncer.On("Sync", mock.Anything).Return(errors.New("plex down")).Once()

	task := newLibrarySyncTask(TaskDeps{Logger: quietLogger(), Syncer: syncer})
	err := task(context.Background())

	require.EqualError(t, err, "plex down")
	syncer.AssertExpectations(t)
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	store.On("RunSQLMaintenance", mock.Anything).Return(nil).Once()
	store.On("RunSQLMaintenance", mock.Anything).Return(errors.New("disk full")).Once()

	task := newSQLMaintenanceTask(TaskDeps{Logger: quietLogger(), Store: store})

	require.NoError(t, task(context.Background()))
	err := task(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sql maintenance failed: disk full")
	store.AssertExpectations(t)
}
