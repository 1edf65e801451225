// Package pages discovers the editable pages of a site directory.
package pages

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page describes one page file.
type Page struct {
	ID       string    `json:"id"`
	Title    string    `json:"title,omitempty"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Config controls discovery.
type Config struct {
	Root    string
	Include []string // empty means DefaultInclude
	Exclude []string // empty means DefaultExclude
}

// maxTitleScan bounds how much of a file is read looking for its title.
const maxTitleScan = 16 << 10

// Lister lists the pages under one site root.
type Lister struct {
	cfg Config
	log *zap.Logger
}

// NewLister creates a lister for cfg.
func NewLister(cfg Config, log *zap.Logger) *Lister {
	if log == nil {
		log = zap.NewNop()
	}
	if len(cfg.Include) == 0 {
		cfg.Include = DefaultInclude
	}
	if len(cfg.Exclude) == 0 {
		cfg.Exclude = DefaultExclude
	}
	return &Lister{cfg: cfg, log: log.Named("pages")}
}

// Root returns the site root directory.
func (l *Lister) Root() string { return l.cfg.Root }

// Matches reports whether a site-relative path is a page.
func (l *Lister) Matches(relPath string) bool {
	return MatchesInclude(relPath, l.cfg.Include) && !MatchesExclude(relPath, l.cfg.Exclude)
}

// List walks the site root and returns its pages sorted by id. Unreadable
// entries are skipped.
func (l *Lister) List(ctx context.Context) ([]Page, error) {
	if l.cfg.Root == "" {
		return nil, nil
	}
	root, err := filepath.Abs(l.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving site root: %w", err)
	}

	var out []Page
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			l.log.Debug("Skipping unreadable entry", zap.String("path", p), zap.Error(walkErr))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !l.Matches(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, Page{
			ID:       rel,
			Title:    readTitle(p),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// readTitle returns the text of the first title element near the top of the
// file, or "".
func readTitle(p string) string {
	f, err := os.Open(p)
	if err != nil {
		return ""
	}
	defer f.Close()

	z := html.NewTokenizer(io.LimitReader(f, maxTitleScan))
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Title {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.Join(strings.Fields(string(z.Text())), " ")
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
