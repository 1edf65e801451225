// Package snippets provides the library of markup snippets an operator can
// insert at the source cursor. Snippets are HTML or Markdown files in a
// directory, plus a few built-in ones.
package snippets

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown snippet names.
var ErrNotFound = errors.New("snippet not found")

// Format is the source format of a snippet.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Snippet is one library entry.
type Snippet struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Format  Format `json:"format"`
	Builtin bool   `json:"builtin"`
	Source  string `json:"-"`
}

// Library lists and renders snippets. Files in the directory override
// built-in snippets of the same name.
type Library struct {
	dir string
	md  goldmark.Markdown
	log *zap.Logger
}

// New creates a library reading dir. An empty or missing dir leaves only the
// built-in snippets.
func New(dir string, log *zap.Logger) *Library {
	if log == nil {
		log = zap.NewNop()
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	return &Library{dir: dir, md: md, log: log.Named("snippets")}
}

// List returns all snippets sorted by name.
func (l *Library) List() ([]Snippet, error) {
	all := make(map[string]Snippet, len(builtin))
	for _, s := range builtin {
		all[s.Name] = s
	}

	if l.dir != "" {
		entries, err := os.ReadDir(l.dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("listing snippets: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			s, ok, err := l.readFile(e.Name())
			if err != nil {
				l.log.Warn("Skipping unreadable snippet", zap.String("file", e.Name()), zap.Error(err))
				continue
			}
			if ok {
				all[s.Name] = s
			}
		}
	}

	out := make([]Snippet, 0, len(all))
	for _, s := range all {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (l *Library) readFile(file string) (Snippet, bool, error) {
	ext := strings.ToLower(filepath.Ext(file))
	var format Format
	switch ext {
	case ".html", ".htm":
		format = FormatHTML
	case ".md", ".markdown":
		format = FormatMarkdown
	default:
		return Snippet{}, false, nil
	}
	data, err := os.ReadFile(filepath.Join(l.dir, file))
	if err != nil {
		return Snippet{}, false, err
	}
	name := strings.TrimSuffix(file, filepath.Ext(file))
	return Snippet{Name: name, Title: titleOf(name), Format: format, Source: string(data)}, true, nil
}

// Get returns the snippet called name.
func (l *Library) Get(name string) (Snippet, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return Snippet{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	list, err := l.List()
	if err != nil {
		return Snippet{}, err
	}
	for _, s := range list {
		if s.Name == name {
			return s, nil
		}
	}
	return Snippet{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Render returns the markup of the snippet called name. Markdown snippets
// are converted to HTML.
func (l *Library) Render(name string) (string, error) {
	s, err := l.Get(name)
	if err != nil {
		return "", err
	}
	if s.Format != FormatMarkdown {
		return s.Source, nil
	}
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(s.Source), &buf); err != nil {
		return "", fmt.Errorf("rendering snippet %s: %w", name, err)
	}
	return buf.String(), nil
}

func titleOf(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var builtin = []Snippet{
	{
		Name:    "callout",
		Title:   "Callout",
		Format:  FormatHTML,
		Builtin: true,
		Source: `<aside class="callout">
  <h3>Heading</h3>
  <p>Short supporting text.</p>
</aside>
`,
	},
	{
		Name:    "card",
		Title:   "Card",
		Format:  FormatHTML,
		Builtin: true,
		Source: `<div class="card">
  <img src="images/placeholder.jpg" alt="">
  <h3>Card title</h3>
  <p>Card text.</p>
  <a href="#">Learn more</a>
</div>
`,
	},
	{
		Name:    "two-column",
		Title:   "Two Column",
		Format:  FormatHTML,
		Builtin: true,
		Source: `<section class="two-column">
  <div>
    <h2>Left column</h2>
    <p>Text.</p>
  </div>
  <div>
    <h2>Right column</h2>
    <p>Text.</p>
  </div>
</section>
`,
	},
	{
		Name:    "faq",
		Title:   "FAQ",
		Format:  FormatMarkdown,
		Builtin: true,
		Source: `## Frequently asked questions

**Do I need an appointment?**
Walk-ins are welcome during opening hours.

**Which insurances do you accept?**
Most major plans. Call us to confirm yours.
`,
	},
}
