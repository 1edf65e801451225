package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/db"
	"github.com/ziadkadry99/pagedit/internal/drafts"
	"github.com/ziadkadry99/pagedit/internal/editor"
	"github.com/ziadkadry99/pagedit/internal/server"
	"github.com/ziadkadry99/pagedit/internal/session"
	"github.com/ziadkadry99/pagedit/internal/snippets"
	"github.com/ziadkadry99/pagedit/internal/stylescope"
	"github.com/ziadkadry99/pagedit/internal/watch"
)

var (
	servePort     int
	serveAllowAll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor",
	Long:  `Starts the pagedit editor: the browser UI, its REST and WebSocket API, and the preview of the site's pages.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Port = servePort
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		// Open database.
		database, err := db.Open(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()
		draftStore := drafts.NewStore(database)

		if cfg.Drafts.PruneSchedule != "" {
			pruner, err := drafts.NewPruner(draftStore, cfg.Drafts.PruneSchedule, cfg.DraftMaxAge(), log)
			if err != nil {
				return err
			}
			pruner.Start()
			defer pruner.Stop()
		}

		l, err := newLoader(cfg, stylescope.New(log), log)
		if err != nil {
			return err
		}
		sessions := session.NewManager(l, session.Options{
			QuietPeriod:     cfg.QuietPeriod(),
			AutosaveDelay:   cfg.AutosaveDelay(),
			HistoryCapacity: cfg.Editor.HistoryCapacity,
			Drafts:          draftStore,
			Exports:         draftStore,
			Log:             log,
		})

		// Page list and change notifications need a site root.
		var pageList editor.PageLister
		if lister := newLister(cfg, log); lister != nil {
			pageList = lister
			if cfg.Editor.Watch {
				w, err := watch.New(watch.Options{Root: cfg.SiteRoot, Match: lister.Matches}, sessions.PageChanged, log)
				if err != nil {
					log.Warn("External changes will not be reported", zap.Error(err))
				} else {
					w.Start()
					defer w.Close()
				}
			}
		}

		// Relative links in previews resolve against the live site, or
		// against the site root served by this process.
		baseURL := cfg.SiteURL
		if baseURL == "" && cfg.SiteRoot != "" {
			baseURL = server.SitePrefix
		}

		srv := server.New(server.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			SiteRoot: cfg.SiteRoot,
			AllowAll: serveAllowAll,
		}, log)
		r := srv.Router()
		drafts.RegisterRoutes(r, draftStore)
		editor.New(sessions, pageList, snippets.New(cfg.SnippetsDir, log), baseURL, log).RegisterRoutes(r)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down editor...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "pagedit %s editing %s\n", Version, describeSite(cfg.SiteURL, cfg.SiteRoot))
		fmt.Fprintf(os.Stderr, "  Editor:   http://%s\n", srv.Addr())
		fmt.Fprintf(os.Stderr, "  Database: %s\n", cfg.DBPath())

		err = srv.Start()
		return multierr.Append(err, sessions.Close())
	},
}

func describeSite(siteURL, siteRoot string) string {
	switch {
	case siteURL != "" && siteRoot != "":
		return fmt.Sprintf("%s (files in %s)", siteURL, siteRoot)
	case siteURL != "":
		return siteURL
	case siteRoot != "":
		return siteRoot
	}
	return "built-in pages"
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow cross-origin requests from any origin")
	rootCmd.AddCommand(serveCmd)
}
