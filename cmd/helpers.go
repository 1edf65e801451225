package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/config"
	"github.com/ziadkadry99/pagedit/internal/loader"
	"github.com/ziadkadry99/pagedit/internal/pages"
	"github.com/ziadkadry99/pagedit/internal/stylescope"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `pagedit init` to create a config file", err)
	}
	if verbose {
		cfg.Logging.Console.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := cfg.Logging.Prepare()
	if err != nil {
		return nil, fmt.Errorf("preparing logger: %w", err)
	}
	return log, nil
}

// newLoader creates the page loader shared by all commands.
func newLoader(cfg *config.Config, scoper *stylescope.Scoper, log *zap.Logger) (*loader.Loader, error) {
	return loader.New(loader.Options{
		SiteURL:   cfg.SiteURL,
		SiteRoot:  cfg.SiteRoot,
		Container: cfg.Container,
		Includes:  cfg.Includes,
		SiteName:  cfg.SiteName,
	}, scoper, log)
}

// newLister creates the page lister, or nil without a site root.
func newLister(cfg *config.Config, log *zap.Logger) *pages.Lister {
	if cfg.SiteRoot == "" {
		return nil
	}
	return pages.NewLister(pages.Config{
		Root:    cfg.SiteRoot,
		Include: cfg.Pages.Include,
		Exclude: cfg.Pages.Exclude,
	}, log)
}
