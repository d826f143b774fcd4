package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "discord-token")
	t.Setenv("PLEX_URL", "http://plex.local:32400/")
	t.Setenv("PLEX_TOKEN", "plex-token")
	t.Setenv("CHANNEL_ID", "123456789012345678")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "discord-token", cfg.DiscordToken)
	assert.Equal(t, "http://plex.local:32400", cfg.PlexURL, "trailing slash is trimmed")
	assert.Equal(t, "123456789012345678", cfg.ChannelID)
	assert.Equal(t, DefaultUpdateIntervalMinutes, cfg.UpdateIntervalMinutes)
	assert.Equal(t, 30*time.Minute, cfg.UpdateInterval())
	assert.Equal(t, "Movies", cfg.MoviesSection)
	assert.Equal(t, "TV Shows", cfg.TVSection)
	assert.Equal(t, DefaultPlexTimeout, cfg.PlexTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.PersistState())
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPDATE_INTERVAL_MINUTES", "120")
	t.Setenv("MOVIES_SECTION", "Films")
	t.Setenv("TV_SECTION", "Series")
	t.Setenv("PLEX_TIMEOUT", "10s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("STATE_DB_PATH", "/tmp/state.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.UpdateIntervalMinutes)
	assert.Equal(t, 2*time.Hour, cfg.UpdateInterval())
	assert.Equal(t, "Films", cfg.MoviesSection)
	assert.Equal(t, "Series", cfg.TVSection)
	assert.Equal(t, 10*time.Second, cfg.PlexTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.PersistState())
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{
			name:    "missing discord token",
			env:     map[string]string{"DISCORD_TOKEN": ""},
			wantMsg: "DISCORD_TOKEN",
		},
		{
			name:    "missing plex url",
			env:     map[string]string{"PLEX_URL": ""},
			wantMsg: "PLEX_URL",
		},
		{
			name:    "non numeric channel",
			env:     map[string]string{"CHANNEL_ID": "general"},
			wantMsg: "CHANNEL_ID",
		},
		{
			name:    "signed decimal channel",
			env:     map[string]string{"CHANNEL_ID": "-1.5"},
			wantMsg: "CHANNEL_ID (number)",
		},
		{
			name:    "negative channel",
			env:     map[string]string{"CHANNEL_ID": "-123456789012345678"},
			wantMsg: "CHANNEL_ID (number)",
		},
		{
			name:    "zero interval",
			env:     map[string]string{"UPDATE_INTERVAL_MINUTES": "0"},
			wantMsg: "UPDATE_INTERVAL_MINUTES",
		},
		{
			name:    "unknown log level",
			env:     map[string]string{"LOG_LEVEL": "verbose"},
			wantMsg: "LOG_LEVEL",
		},
		{
			name:    "interval not a number",
			env:     map[string]string{"UPDATE_INTERVAL_MINUTES": "soon"},
			wantMsg: "failed to parse environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Equal(t, apperrors.CodeConfig, apperrors.Code(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadDoesNotLogBeforeLoggerSetup(t *testing.T) {
	setRequiredEnv(t)

	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	_, err := Load()
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
