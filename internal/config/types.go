package config

// Config is the top-level pagedit configuration, corresponding to .pagedit.yml.
type Config struct {
	// SiteURL is where pages are fetched from first; empty skips that tier.
	SiteURL string `yaml:"site_url" koanf:"site_url"`
	// SiteRoot is the directory holding the site's files.
	SiteRoot    string            `yaml:"site_root" koanf:"site_root"`
	SiteName    string            `yaml:"site_name" koanf:"site_name"`
	Host        string            `yaml:"host" koanf:"host"`
	Port        int               `yaml:"port" koanf:"port"`
	DataDir     string            `yaml:"data_dir" koanf:"data_dir"`
	Container   string            `yaml:"container" koanf:"container"`
	Includes    map[string]string `yaml:"includes,omitempty" koanf:"includes"`
	SnippetsDir string            `yaml:"snippets_dir" koanf:"snippets_dir"`
	Pages       PagesConfig       `yaml:"pages" koanf:"pages"`
	Editor      EditorConfig      `yaml:"editor" koanf:"editor"`
	Drafts      DraftsConfig      `yaml:"drafts" koanf:"drafts"`
	Logging     LoggingConfig     `yaml:"logging" koanf:"logging"`
}

// PagesConfig selects the files listed as editable pages.
type PagesConfig struct {
	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`
}

// EditorConfig holds editing session settings.
type EditorConfig struct {
	QuietPeriodMS   int  `yaml:"quiet_period_ms" koanf:"quiet_period_ms"`
	AutosaveDelayMS int  `yaml:"autosave_delay_ms" koanf:"autosave_delay_ms"`
	HistoryCapacity int  `yaml:"history_capacity" koanf:"history_capacity"`
	Watch           bool `yaml:"watch" koanf:"watch"`
}

// DraftsConfig controls autosave draft retention.
type DraftsConfig struct {
	PruneSchedule string `yaml:"prune_schedule" koanf:"prune_schedule"`
	MaxAgeDays    int    `yaml:"max_age_days" koanf:"max_age_days"`
}
