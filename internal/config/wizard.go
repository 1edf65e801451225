package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// siteRootCandidates are directories static site generators commonly build
// into, checked in order.
var siteRootCandidates = []string{".", "public", "_site", "site", "dist", "build", "docs"}

// detectSiteRoot returns the first candidate directory holding an
// index.html, or ".".
func detectSiteRoot(base string) string {
	for _, dir := range siteRootCandidates {
		if _, err := os.Stat(filepath.Join(base, dir, "index.html")); err == nil {
			return dir
		}
	}
	return "."
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to pagedit! Let's configure your site.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Site root.
	rootPrompt := promptui.Prompt{
		Label:   "Directory holding the site's HTML files",
		Default: detectSiteRoot("."),
		Validate: func(s string) error {
			info, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return errors.New("not a directory")
			}
			return nil
		},
	}
	root, err := rootPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("site root: %w", err)
	}
	cfg.SiteRoot = root

	// 2. Site URL.
	urlPrompt := promptui.Prompt{
		Label:   "Site URL pages are fetched from (leave blank to read files only)",
		Default: "",
		Validate: func(s string) error {
			if s == "" {
				return nil
			}
			u, err := url.Parse(s)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return errors.New("must be an http(s) URL")
			}
			return nil
		},
	}
	siteURL, err := urlPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("site url: %w", err)
	}
	cfg.SiteURL = siteURL

	// 3. Port.
	portPrompt := promptui.Prompt{
		Label:   "Editor port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return errors.New("must be a port number")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// 4. Extra exclude patterns.
	excludePrompt := promptui.Prompt{
		Label:   "Extra page exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	cfg.Pages.Exclude = append(cfg.Pages.Exclude, splitAndTrim(excludeStr)...)

	// 5. Snippets.
	snippetsPrompt := promptui.Prompt{
		Label:   "Snippets directory (leave blank for built-in snippets only)",
		Default: "",
	}
	if cfg.SnippetsDir, err = snippetsPrompt.Run(); err != nil {
		return nil, fmt.Errorf("snippets dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
