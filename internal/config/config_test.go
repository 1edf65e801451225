package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Port != 8130 {
		t.Errorf("expected default port 8130, got %d", cfg.Port)
	}
	if cfg.Container != ".pe-surface" {
		t.Errorf("expected default container %q, got %q", ".pe-surface", cfg.Container)
	}
	if cfg.QuietPeriod() != time.Second {
		t.Errorf("expected a one second quiet period, got %v", cfg.QuietPeriod())
	}
	if cfg.DraftMaxAge() != 30*24*time.Hour {
		t.Errorf("unexpected draft max age %v", cfg.DraftMaxAge())
	}
	if cfg.DBPath() != filepath.Join(".pagedit", "pagedit.db") {
		t.Errorf("unexpected db path %q", cfg.DBPath())
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pagedit.yml")

	original := DefaultConfig()
	original.SiteURL = "https://clinic.example"
	original.SiteRoot = dir
	original.Port = 9000
	original.Includes = map[string]string{"nav": "partials/nav.html"}
	original.Pages.Include = []string{"**/*.html", "*.htm"}
	original.Editor.QuietPeriodMS = 500
	original.Editor.Watch = false

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if loaded.SiteURL != original.SiteURL {
		t.Errorf("site_url: got %q, want %q", loaded.SiteURL, original.SiteURL)
	}
	if loaded.SiteRoot != original.SiteRoot {
		t.Errorf("site_root: got %q, want %q", loaded.SiteRoot, original.SiteRoot)
	}
	if loaded.Port != original.Port {
		t.Errorf("port: got %d, want %d", loaded.Port, original.Port)
	}
	if loaded.Includes["nav"] != "partials/nav.html" {
		t.Errorf("includes: got %v", loaded.Includes)
	}
	if loaded.QuietPeriod() != 500*time.Millisecond {
		t.Errorf("quiet period: got %v", loaded.QuietPeriod())
	}
	if loaded.Editor.Watch {
		t.Error("editor.watch should round-trip false")
	}
	if len(loaded.Pages.Include) != len(original.Pages.Include) {
		t.Errorf("include length: got %d, want %d", len(loaded.Pages.Include), len(original.Pages.Include))
	}
	for i, v := range loaded.Pages.Include {
		if v != original.Pages.Include[i] {
			t.Errorf("include[%d]: got %q, want %q", i, v, original.Pages.Include[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Port != DefaultConfig().Port {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("PAGEDIT_SITE_URL", "http://localhost:4000")
	t.Setenv("PAGEDIT_PORT", "9191")
	t.Setenv("PAGEDIT_EDITOR__HISTORY_CAPACITY", "20")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.SiteURL != "http://localhost:4000" {
		t.Errorf("env override failed: got %q", loaded.SiteURL)
	}
	if loaded.Port != 9191 {
		t.Errorf("port override failed: got %d", loaded.Port)
	}
	if loaded.Editor.HistoryCapacity != 20 {
		t.Errorf("nested override failed: got %d", loaded.Editor.HistoryCapacity)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"relative site url", func(c *Config) { c.SiteURL = "clinic.example" }},
		{"ftp site url", func(c *Config) { c.SiteURL = "ftp://clinic.example" }},
		{"missing site root", func(c *Config) { c.SiteRoot = filepath.Join(os.TempDir(), "pagedit-does-not-exist") }},
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"empty container", func(c *Config) { c.Container = "" }},
		{"bad pattern", func(c *Config) { c.Pages.Exclude = []string{"[abc"} }},
		{"no include", func(c *Config) { c.Pages.Include = nil }},
		{"zero quiet period", func(c *Config) { c.Editor.QuietPeriodMS = 0 }},
		{"zero history", func(c *Config) { c.Editor.HistoryCapacity = 0 }},
		{"bad schedule", func(c *Config) { c.Drafts.PruneSchedule = "every tuesday" }},
		{"bad console level", func(c *Config) { c.Logging.Console.Level = "verbose" }},
		{"file without destination", func(c *Config) { c.Logging.File.Level = "debug" }},
		{"bad file mode", func(c *Config) { c.Logging.File.Mode = "rotate" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateSiteRootFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "index.html")
	os.WriteFile(f, []byte("<html></html>"), 0o644)
	cfg := DefaultConfig()
	cfg.SiteRoot = f
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("expected a not-a-directory error, got %v", err)
	}
}

func TestDetectSiteRoot(t *testing.T) {
	dir := t.TempDir()
	if got := detectSiteRoot(dir); got != "." {
		t.Errorf("expected . for an empty directory, got %q", got)
	}
	os.MkdirAll(filepath.Join(dir, "public"), 0o755)
	os.WriteFile(filepath.Join(dir, "public", "index.html"), []byte("<html></html>"), 0o644)
	if got := detectSiteRoot(dir); got != "public" {
		t.Errorf("expected public, got %q", got)
	}
}

func TestPrepareLogger(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "pagedit.log")
	conf := LoggingConfig{
		Console: LoggerConfig{Level: "none"},
		File:    LoggerConfig{Level: "debug", Destination: dest, Mode: "overwrite"},
	}
	log, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	log.Debug("Page loaded")
	log.Sync()

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Page loaded") {
		t.Errorf("expected the entry in the log file, got %q", data)
	}
}

func TestPrepareNothingEnabled(t *testing.T) {
	conf := LoggingConfig{Console: LoggerConfig{Level: "none"}, File: LoggerConfig{Level: "none"}}
	log, err := conf.Prepare()
	if err != nil || log == nil {
		t.Fatalf("Prepare: %v", err)
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"drafts/**", []string{"drafts/**"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
