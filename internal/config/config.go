package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PAGEDIT_*). A double underscore in a
// variable name separates nested keys: PAGEDIT_EDITOR__WATCH -> editor.watch.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("PAGEDIT_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "PAGEDIT_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validLevels is the set of recognized logger levels.
var validLevels = map[string]bool{
	"none":   true,
	"normal": true,
	"debug":  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.SiteURL != "" {
		u, err := url.Parse(c.SiteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid site_url %q: must be an absolute http(s) URL", c.SiteURL)
		}
	}
	if c.SiteRoot != "" {
		info, err := os.Stat(c.SiteRoot)
		if err != nil {
			return fmt.Errorf("site_root %q: %w", c.SiteRoot, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("site_root %q is not a directory", c.SiteRoot)
		}
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Container == "" {
		return fmt.Errorf("container is required")
	}

	for _, p := range append(append([]string{}, c.Pages.Include...), c.Pages.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid page pattern %q", p)
		}
	}
	if len(c.Pages.Include) == 0 {
		return fmt.Errorf("pages.include must not be empty")
	}

	if c.Editor.QuietPeriodMS <= 0 {
		return fmt.Errorf("editor.quiet_period_ms must be positive")
	}
	if c.Editor.AutosaveDelayMS <= 0 {
		return fmt.Errorf("editor.autosave_delay_ms must be positive")
	}
	if c.Editor.HistoryCapacity <= 0 {
		return fmt.Errorf("editor.history_capacity must be positive")
	}

	if c.Drafts.PruneSchedule != "" {
		if _, err := cron.ParseStandard(c.Drafts.PruneSchedule); err != nil {
			return fmt.Errorf("invalid drafts.prune_schedule %q: %w", c.Drafts.PruneSchedule, err)
		}
		if c.Drafts.MaxAgeDays <= 0 {
			return fmt.Errorf("drafts.max_age_days must be positive when pruning is scheduled")
		}
	}

	return c.Logging.validate()
}

func (l *LoggingConfig) validate() error {
	if !validLevels[l.Console.Level] {
		return fmt.Errorf("invalid logging.console.level %q: must be one of none, normal, debug", l.Console.Level)
	}
	if !validLevels[l.File.Level] {
		return fmt.Errorf("invalid logging.file.level %q: must be one of none, normal, debug", l.File.Level)
	}
	if l.File.Level != "none" && l.File.Destination == "" {
		return fmt.Errorf("logging.file.destination is required when file logging is on")
	}
	if l.File.Mode != "" && l.File.Mode != "append" && l.File.Mode != "overwrite" {
		return fmt.Errorf("invalid logging.file.mode %q: must be append or overwrite", l.File.Mode)
	}
	return nil
}
