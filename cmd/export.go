package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/db"
	"github.com/ziadkadry99/pagedit/internal/drafts"
	"github.com/ziadkadry99/pagedit/internal/progress"
	"github.com/ziadkadry99/pagedit/internal/session"
	"github.com/ziadkadry99/pagedit/internal/stylescope"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [page-id...]",
	Short: "Export pages with their stylesheets inlined",
	Long: `Writes each page to the output directory with its same-site stylesheets
inlined as style blocks, keeping the site's directory structure. Without
arguments every page under site_root is exported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx := context.Background()
		l, err := newLoader(cfg, stylescope.New(log), log)
		if err != nil {
			return err
		}

		ids := args
		if len(ids) == 0 {
			lister := newLister(cfg, log)
			if lister == nil {
				return fmt.Errorf("no page ids given and no site_root configured")
			}
			list, err := lister.List(ctx)
			if err != nil {
				return err
			}
			for _, p := range list {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) == 0 {
			fmt.Fprintln(os.Stderr, "No pages to export.")
			return nil
		}

		database, err := db.Open(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()
		store := drafts.NewStore(database)

		reporter := progress.NewReporter(os.Stderr, "Exporting")
		reporter.Start(len(ids))
		var failed int
		for i, id := range ids {
			if err := exportPage(ctx, l, store, id); err != nil {
				log.Warn("Export failed", zap.String("page", id), zap.Error(err))
				failed++
			}
			reporter.Update(i+1, id)
		}
		reporter.Finish()

		if failed > 0 {
			return fmt.Errorf("%d of %d page(s) failed to export", failed, len(ids))
		}
		fmt.Fprintf(os.Stderr, "Exported %d page(s) to %s\n", len(ids), exportOut)
		return nil
	},
}

func exportPage(ctx context.Context, l session.PageLoader, store *drafts.Store, id string) error {
	art, err := session.ExportPage(ctx, l, id)
	if err != nil {
		return err
	}
	dest := filepath.Join(exportOut, filepath.FromSlash(art.PageID))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(dest, []byte(art.Text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	_, err = store.RecordExport(ctx, drafts.Export{
		PageID:    art.PageID,
		FileName:  art.FileName,
		SizeBytes: int64(len(art.Text)),
	})
	return err
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "export", "output directory")
	rootCmd.AddCommand(exportCmd)
}
