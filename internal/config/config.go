// Package config loads the bot settings from the environment (optionally
// seeded from a .env file), applies defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
)

// Config defines the application configuration. Every field maps to an
// environment variable named after its mapstructure key in upper case
// (e.g. discord_token -> DISCORD_TOKEN).
type Config struct {
	// Discord settings
	DiscordToken string `mapstructure:"discord_token" validate:"required"`
	ChannelID    string `mapstructure:"channel_id"    validate:"required,number"`

	// Plex settings
	PlexURL       string        `mapstructure:"plex_url"       validate:"required,url"`
	PlexToken     string        `mapstructure:"plex_token"     validate:"required"`
	PlexTimeout   time.Duration `mapstructure:"plex_timeout"   validate:"min=1s,max=5m"`
	MoviesSection string        `mapstructure:"movies_section" validate:"required"`
	TVSection     string        `mapstructure:"tv_section"     validate:"required"`

	UpdateIntervalMinutes int `mapstructure:"update_interval_minutes" validate:"min=1,max=1440"`

	// Logging settings
	LogLevel  string `mapstructure:"log_level"  validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json text"`

	// Optional state persistence; empty keeps state in memory only.
	StateDBPath              string `mapstructure:"state_db_path"`
	StateMaintenanceSchedule string `mapstructure:"state_maintenance_schedule"`

	// Optional metrics listener; empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// UpdateInterval returns the polling interval as a duration.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMinutes) * time.Minute
}

// PersistState reports whether state should be stored on disk.
func (c *Config) PersistState() bool {
	return strings.TrimSpace(c.StateDBPath) != ""
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; variables already set in
// the process environment take precedence over it.
//
// Any missing or invalid value is returned as a ConfigError.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewConfigError("failed to read .env file", err)
		}
		slog.Debug("No .env file found, using process environment only")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to bind %s", strings.ToUpper(key)), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to parse environment", err)
	}

	cfg.PlexURL = strings.TrimRight(strings.TrimSpace(cfg.PlexURL), "/")
	cfg.ChannelID = strings.TrimSpace(cfg.ChannelID)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cfg against its validation tags and reports the offending
// environment variables.
func Validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewConfigError("invalid configuration", err)
	}

	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fmt.Sprintf("%s (%s)", envName(fe.StructField()), fe.Tag()))
	}
	return apperrors.NewConfigError("missing or invalid environment variables: "+strings.Join(names, ", "), err)
}

var envNames = map[string]string{
	"DiscordToken":             "DISCORD_TOKEN",
	"ChannelID":                "CHANNEL_ID",
	"PlexURL":                  "PLEX_URL",
	"PlexToken":                "PLEX_TOKEN",
	"PlexTimeout":              "PLEX_TIMEOUT",
	"MoviesSection":            "MOVIES_SECTION",
	"TVSection":                "TV_SECTION",
	"UpdateIntervalMinutes":    "UPDATE_INTERVAL_MINUTES",
	"LogLevel":                 "LOG_LEVEL",
	"LogFormat":                "LOG_FORMAT",
	"StateDBPath":              "STATE_DB_PATH",
	"StateMaintenanceSchedule": "STATE_MAINTENANCE_SCHEDULE",
	"MetricsAddr":              "METRICS_ADDR",
}

func envName(field string) string {
	if name, ok := envNames[field]; ok {
		return name
	}
	return field
}
