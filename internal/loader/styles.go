package loader

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/stylescope"
)

// Stylesheets collects the page's same-site linked stylesheets and inline
// style blocks, scoped to the surface container. Unreachable stylesheets are
// logged and skipped.
func (l *Loader) Stylesheets(ctx context.Context, pageID, text string) []stylescope.Resource {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		l.log.Debug("Cannot parse page for stylesheets", zap.String("page", pageID), zap.Error(err))
		return nil
	}

	var out []stylescope.Resource
	seen := make(map[string]bool)
	doc.Find("link[rel~='stylesheet'][href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		p, ok := l.SitePath(pageID, href)
		if !ok || seen[p] {
			return
		}
		seen[p] = true
		raw, err := l.Fragment(ctx, p)
		if err != nil {
			l.log.Debug("Stylesheet unavailable", zap.String("path", p), zap.Error(err))
			return
		}
		out = append(out, l.scoper.Resource(p, raw, l.opts.Container))
	})
	doc.Find("style").Each(func(i int, s *goquery.Selection) {
		raw := s.Text()
		if strings.TrimSpace(raw) == "" {
			return
		}
		name := fmt.Sprintf("%s#style-%d", pageID, i+1)
		out = append(out, l.scoper.Resource(name, raw, l.opts.Container))
	})
	return out
}

// SitePath resolves a stylesheet href against the page to a site-relative
// path. Hrefs on other hosts are rejected.
func (l *Loader) SitePath(pageID, href string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Path == "" {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" {
		if l.base == nil || u.Host != l.base.Host || !strings.HasPrefix(u.Path, l.base.Path) {
			return "", false
		}
		return strings.TrimPrefix(u.Path, l.base.Path), true
	}
	if strings.HasPrefix(u.Path, "/") {
		return strings.TrimPrefix(path.Clean(u.Path), "/"), true
	}
	return strings.TrimPrefix(path.Clean("/"+path.Join(path.Dir(pageID), u.Path)), "/"), true
}
