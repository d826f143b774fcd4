package config

import "time"

// Default values for optional settings.
const (
	DefaultUpdateIntervalMinutes    = 30
	DefaultMoviesSection            = "Movies"
	DefaultTVSection                = "TV Shows"
	DefaultPlexTimeout              = 30 * time.Second
	DefaultLogLevel                 = "info"
	DefaultLogFormat                = "json"
	DefaultStateMaintenanceSchedule = "0 4 * * *"
)

// defaults maps every recognised key to its default. Keys double as the
// lower-cased environment variable names.
var defaults = map[string]any{
	"discord_token": "",
	"channel_id":    "",
	"plex_url":      "",
	"plex_token":    "",

	"plex_timeout":            DefaultPlexTimeout,
	"update_interval_minutes": DefaultUpdateIntervalMinutes,
	"movies_section":          DefaultMoviesSection,
	"tv_section":              DefaultTVSection,

	"log_level":  DefaultLogLevel,
	"log_format": DefaultLogFormat,

	"state_db_path":              "",
	"state_maintenance_schedule": DefaultStateMaintenanceSchedule,
	"metrics_addr":               "",
}
