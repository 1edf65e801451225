package config

import (
	"path/filepath"
	"time"
)

// DefaultPath is the configuration file looked up in the working directory.
const DefaultPath = ".pagedit.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SiteRoot:  ".",
		Host:      "127.0.0.1",
		Port:      8130,
		DataDir:   ".pagedit",
		Container: ".pe-surface",
		Pages: PagesConfig{
			Include: []string{"**/*.html", "**/*.htm"},
			Exclude: []string{"includes/**", "partials/**"},
		},
		Editor: EditorConfig{
			QuietPeriodMS:   1000,
			AutosaveDelayMS: 2000,
			HistoryCapacity: 50,
			Watch:           true,
		},
		Drafts: DraftsConfig{
			PruneSchedule: "@daily",
			MaxAgeDays:    30,
		},
		Logging: LoggingConfig{
			Console: LoggerConfig{Level: "normal"},
			File:    LoggerConfig{Level: "none", Mode: "append"},
		},
	}
}

// DBPath returns the SQLite database location inside the data directory.
func (c *Config) DBPath() string { return filepath.Join(c.DataDir, "pagedit.db") }

// QuietPeriod is the debounce window of editing sessions.
func (c *Config) QuietPeriod() time.Duration {
	return time.Duration(c.Editor.QuietPeriodMS) * time.Millisecond
}

// AutosaveDelay is how long a dirty session waits before saving a draft.
func (c *Config) AutosaveDelay() time.Duration {
	return time.Duration(c.Editor.AutosaveDelayMS) * time.Millisecond
}

// DraftMaxAge is the age after which drafts are pruned.
func (c *Config) DraftMaxAge() time.Duration {
	return time.Duration(c.Drafts.MaxAgeDays) * 24 * time.Hour
}
