// Package loader fetches page markup, include fragments and stylesheets for
// the editor, falling back through increasingly degraded sources so that a
// page always opens.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/ziadkadry99/pagedit/internal/stylescope"
)

var (
	// ErrInvalidPage is returned for page ids that do not name a file.
	ErrInvalidPage = errors.New("invalid page id")
	// ErrUnavailable is returned when neither the site nor the site root
	// yields usable content.
	ErrUnavailable = errors.New("page unavailable")

	errNoSiteURL   = errors.New("no site url configured")
	errNoSiteRoot  = errors.New("no site root configured")
	errTooShort    = errors.New("content too short and has no structural marker")
	errEmptyResult = errors.New("empty response")
)

const (
	DefaultDirectTimeout   = 10 * time.Second
	DefaultIsolatedTimeout = 5 * time.Second
	DefaultContainer       = ".pe-surface"

	maxBodySize = 8 << 20
	minValidLen = 100
)

// Method tags the fallback tier that produced a page.
type Method int

const (
	MethodDirect Method = iota + 1
	MethodIsolated
	MethodBuiltin
	MethodSynthetic
)

func (m Method) String() string {
	switch m {
	case MethodDirect:
		return "direct"
	case MethodIsolated:
		return "isolated"
	case MethodBuiltin:
		return "builtin"
	case MethodSynthetic:
		return "synthetic"
	}
	return "unknown"
}

// Result is a loaded page with its includes and scoped stylesheets.
type Result struct {
	PageID      string                `json:"page_id"`
	HTML        string                `json:"html"`
	CSS         string                `json:"css"`
	Method      Method                `json:"method"`
	Includes    map[string]string     `json:"-"`
	Stylesheets []stylescope.Resource `json:"stylesheets"`
}

// Options configures a Loader.
type Options struct {
	// SiteURL is the base URL pages are fetched from (tier 1).
	SiteURL string
	// SiteRoot is the directory holding the page files (tier 2).
	SiteRoot        string
	DirectTimeout   time.Duration
	IsolatedTimeout time.Duration
	// Container is the selector stylesheets are scoped to.
	Container string
	// Includes maps placeholder names to fragment paths.
	Includes map[string]string
	// Builtin overrides the hand-authored page table.
	Builtin map[string]string
	// SiteName is used in synthetic page titles.
	SiteName string
	Client   *http.Client
}

// DefaultIncludes are the shared fragments substituted into pages.
func DefaultIncludes() map[string]string {
	return map[string]string{
		"header": "includes/header.html",
		"footer": "includes/footer.html",
	}
}

// Loader loads pages through the fallback chain.
type Loader struct {
	opts   Options
	base   *url.URL
	client *http.Client
	scoper *stylescope.Scoper
	log    *zap.Logger
}

// New creates a Loader. A nil scoper gets a private one.
func New(opts Options, scoper *stylescope.Scoper, log *zap.Logger) (*Loader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if scoper == nil {
		scoper = stylescope.New(log)
	}
	if opts.DirectTimeout <= 0 {
		opts.DirectTimeout = DefaultDirectTimeout
	}
	if opts.IsolatedTimeout <= 0 {
		opts.IsolatedTimeout = DefaultIsolatedTimeout
	}
	if opts.Container == "" {
		opts.Container = DefaultContainer
	}
	if opts.Includes == nil {
		opts.Includes = DefaultIncludes()
	}
	if opts.Builtin == nil {
		opts.Builtin = DefaultBuiltin()
	}

	l := &Loader{opts: opts, client: opts.Client, scoper: scoper, log: log.Named("loader")}
	if l.client == nil {
		l.client = &http.Client{}
	}
	if opts.SiteURL != "" {
		u, err := url.Parse(opts.SiteURL)
		if err != nil {
			return nil, fmt.Errorf("parsing site url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		l.base = u
	}
	return l, nil
}

// Container returns the selector stylesheets are scoped to.
func (l *Loader) Container() string { return l.opts.Container }

// CleanPageID normalizes a page id to a slash separated path relative to
// the site root. Empty ids and directories mean their index.html.
func CleanPageID(pageID string) (string, error) {
	id := strings.TrimSpace(strings.ReplaceAll(pageID, "\\", "/"))
	if strings.ContainsRune(id, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPage, pageID)
	}
	dir := id == "" || strings.HasSuffix(id, "/")
	id = strings.TrimPrefix(path.Clean("/"+id), "/")
	if dir {
		id = path.Join(id, "index.html")
	}
	if id == "" || id == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPage, pageID)
	}
	return id, nil
}

// Valid reports whether fetched page content is usable: long enough or
// carrying a structural marker.
func Valid(text string) bool {
	t := strings.TrimSpace(text)
	if len(t) >= minValidLen {
		return true
	}
	lower := strings.ToLower(t)
	return strings.Contains(lower, "<body") || strings.Contains(lower, "<main") || strings.Contains(lower, "main-content")
}

// Load returns the page through the fallback chain. It only fails for an
// invalid page id or a cancelled context; otherwise the last tier always
// produces content.
func (l *Loader) Load(ctx context.Context, pageID string) (*Result, error) {
	id, err := CleanPageID(pageID)
	if err != nil {
		return nil, err
	}

	text, method, err := l.fetchPage(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if b, ok := l.opts.Builtin[id]; ok {
			text, method = b, MethodBuiltin
		} else {
			text, method = Synthetic(id, l.opts.SiteName), MethodSynthetic
		}
		l.log.Warn("Falling back to local content", zap.String("page", id), zap.Stringer("method", method), zap.Error(err))
	}

	res := &Result{PageID: id, HTML: text, Method: method}
	res.Includes = l.Includes(ctx)
	res.Stylesheets = l.Stylesheets(ctx, id, text)
	var css strings.Builder
	for _, s := range res.Stylesheets {
		css.WriteString("/* ")
		css.WriteString(s.Path)
		css.WriteString(" */\n")
		css.WriteString(s.ScopedText)
		css.WriteString("\n")
	}
	res.CSS = css.String()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.log.Info("Page loaded", zap.String("page", id), zap.Stringer("method", method),
		zap.Int("includes", len(res.Includes)), zap.Int("stylesheets", len(res.Stylesheets)))
	return res, nil
}

// Page loads the real page file only (tiers 1 and 2).
func (l *Loader) Page(ctx context.Context, pageID string) (string, Method, error) {
	id, err := CleanPageID(pageID)
	if err != nil {
		return "", 0, err
	}
	return l.fetchPage(ctx, id)
}

func (l *Loader) fetchPage(ctx context.Context, id string) (string, Method, error) {
	var errs error

	text, err := l.direct(ctx, id)
	if err == nil && !Valid(text) {
		err = errTooShort
	}
	if err == nil {
		return text, MethodDirect, nil
	}
	l.log.Debug("Direct fetch failed", zap.String("page", id), zap.Error(err))
	errs = multierr.Append(errs, err)
	if ctx.Err() != nil {
		return "", 0, ctx.Err()
	}

	text, err = l.isolated(ctx, id)
	if err == nil && !Valid(text) {
		err = errTooShort
	}
	if err == nil {
		return text, MethodIsolated, nil
	}
	l.log.Debug("Isolated read failed", zap.String("page", id), zap.Error(err))
	errs = multierr.Append(errs, err)

	return "", 0, fmt.Errorf("%w: %s: %w", ErrUnavailable, id, errs)
}

// Fragment loads a shared fragment or stylesheet by site-relative path
// (tiers 1 and 2).
func (l *Loader) Fragment(ctx context.Context, p string) (string, error) {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	text, err := l.direct(ctx, p)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if err == nil {
		err = errEmptyResult
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	text, err2 := l.isolated(ctx, p)
	if err2 == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if err2 == nil {
		err2 = errEmptyResult
	}
	return "", fmt.Errorf("loading %s: %w", p, multierr.Combine(err, err2))
}

// Includes loads every configured include fragment. Missing fragments are
// logged and left out.
func (l *Loader) Includes(ctx context.Context) map[string]string {
	out := make(map[string]string, len(l.opts.Includes))
	for name, p := range l.opts.Includes {
		frag, err := l.Fragment(ctx, p)
		if err != nil {
			l.log.Debug("Include unavailable", zap.String("include", name), zap.Error(err))
			continue
		}
		out[name] = frag
	}
	return out
}

func (l *Loader) direct(ctx context.Context, p string) (string, error) {
	if l.base == nil {
		return "", errNoSiteURL
	}
	ctx, cancel := context.WithTimeout(ctx, l.opts.DirectTimeout)
	defer cancel()

	u := l.base.ResolveReference(&url.URL{Path: p})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: %s", u, resp.Status)
	}
	return decode(resp.Body, resp.Header.Get("Content-Type"))
}

func (l *Loader) isolated(ctx context.Context, p string) (string, error) {
	if l.opts.SiteRoot == "" {
		return "", errNoSiteRoot
	}
	ctx, cancel := context.WithTimeout(ctx, l.opts.IsolatedTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := readRooted(l.opts.SiteRoot, p)
		ch <- result{text, err}
	}()

	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("reading %s: %w", p, ctx.Err())
	}
}

// readRooted reads p without following paths out of dir.
func readRooted(dir, p string) (string, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return "", fmt.Errorf("opening site root: %w", err)
	}
	defer root.Close()

	f, err := root.Open(filepath.FromSlash(p))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", p, err)
	}
	defer f.Close()
	return decode(f, "")
}

func decode(r io.Reader, contentType string) (string, error) {
	cr, err := charset.NewReader(io.LimitReader(r, maxBodySize), contentType)
	if err != nil {
		return "", fmt.Errorf("detecting charset: %w", err)
	}
	data, err := io.ReadAll(cr)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(data), nil
}
