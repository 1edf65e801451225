package session

import (
	"context"
	"path"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ziadkadry99/pagedit/internal/drafts"
)

// Artifact is a page reassembled for download.
type Artifact struct {
	PageID   string `json:"page_id"`
	FileName string `json:"file_name"`
	Text     string `json:"-"`
}

// FileName derives the download file name of a page.
func FileName(pageID string) string {
	name := slug.Make(strings.TrimSuffix(pageID, path.Ext(pageID)))
	if name == "" {
		name = "page"
	}
	return name + ".html"
}

// Assemble inlines the same-site stylesheets linked from text as style
// blocks. Links that cannot be resolved or fetched are kept.
func Assemble(ctx context.Context, l PageLoader, pageID, text string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(text))
	pos, last := 0, 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		start := pos
		pos += len(z.Raw())
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		if tok.DataAtom != atom.Link || !isStylesheet(tok) {
			continue
		}
		href := attr(tok, "href")
		p, ok := l.SitePath(pageID, href)
		if !ok {
			continue
		}
		css, err := l.Fragment(ctx, p)
		if err != nil {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(`<style data-href="`)
		b.WriteString(html.EscapeString(href))
		b.WriteString("\">\n")
		b.WriteString(strings.ReplaceAll(css, "</style", `<\/style`))
		b.WriteString("\n</style>")
		last = pos
	}
	b.WriteString(text[last:])
	return b.String()
}

func isStylesheet(tok html.Token) bool {
	for _, rel := range strings.Fields(strings.ToLower(attr(tok, "rel"))) {
		if rel == "stylesheet" {
			return true
		}
	}
	return false
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ExportPage assembles the real file of pageID, without a session.
func ExportPage(ctx context.Context, l PageLoader, pageID string) (*Artifact, error) {
	text, _, err := l.Page(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return &Artifact{PageID: pageID, FileName: FileName(pageID), Text: Assemble(ctx, l, pageID, text)}, nil
}

// Save writes pending edits into the document and returns it as a download.
// The document is clean afterwards and its draft deleted, unless it changed
// while assembling.
func (s *Session) Save(ctx context.Context) (*Artifact, error) {
	s.lock()
	if !s.loaded {
		s.unlock()
		return nil, ErrNoDocument
	}
	if s.toSource.isPending() {
		s.flushPendingLocked(s.targetLocked(), s.active)
	}
	epoch, pageID, text := s.epoch, s.doc.PageID, s.doc.Text
	s.unlock()

	art := &Artifact{PageID: pageID, FileName: FileName(pageID), Text: Assemble(ctx, s.loader, pageID, text)}
	if s.opts.Exports != nil {
		e := drafts.Export{PageID: pageID, FileName: art.FileName, SizeBytes: int64(len(art.Text))}
		if _, err := s.opts.Exports.RecordExport(ctx, e); err != nil {
			s.log.Warn("Recording export failed", zap.String("page", pageID), zap.Error(err))
		}
	}

	s.lock()
	defer s.unlock()
	if epoch != s.epoch || s.doc.Text != text {
		return art, nil
	}
	s.doc.Dirty = false
	s.autosave.cancel()
	if s.opts.Drafts != nil {
		if err := s.opts.Drafts.Delete(ctx, pageID); err != nil {
			s.log.Warn("Deleting draft failed", zap.String("page", pageID), zap.Error(err))
		}
	}
	s.draftAt = nil
	s.emitPageLocked()
	s.notice(LevelInfo, "Saved %s.", art.FileName)
	s.log.Info("Page saved", zap.String("page", pageID), zap.String("file", art.FileName), zap.Int("bytes", len(art.Text)))
	return art, nil
}
