// Package preview implements the isolated preview view: the real page file,
// rendered with its own stylesheets, optionally editable in place.
package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/ziadkadry99/pagedit/internal/loader"
	"github.com/ziadkadry99/pagedit/internal/markup"
)

var (
	// ErrNotReady is returned while the frame has no loaded document.
	ErrNotReady = errors.New("preview not ready")
	// ErrNotEditable is returned for edits while direct edit is off.
	ErrNotEditable = errors.New("preview direct edit is disabled")
	// ErrInvalidSize is returned for unknown size tiers.
	ErrInvalidSize = errors.New("invalid preview size")
)

// State is the load state of a frame.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateFailed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown preview state %q", text)
}

// Size is a preview viewport width in pixels.
type Size int

const (
	SizeDesktop Size = 1280
	SizeTablet  Size = 768
	SizeMobile  Size = 375
)

// ParseSize accepts a tier name or its width.
func ParseSize(s string) (Size, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desktop", "1280":
		return SizeDesktop, nil
	case "tablet", "768":
		return SizeTablet, nil
	case "mobile", "375":
		return SizeMobile, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
}

// PageSource loads the real page file.
type PageSource interface {
	Page(ctx context.Context, pageID string) (string, loader.Method, error)
}

// Frame is the preview of one session.
type Frame struct {
	src PageSource
	log *zap.Logger

	mu         sync.Mutex
	gen        uint64
	pageID     string
	state      State
	err        error
	size       Size
	directEdit bool
	content    string
	baseline   string
	region     string
	edited     string
	// replaced is set when SetContent ran after the last Show.
	replaced bool
}

// New creates an idle frame.
func New(src PageSource, log *zap.Logger) *Frame {
	if log == nil {
		log = zap.NewNop()
	}
	return &Frame{src: src, log: log.Named("preview"), size: SizeDesktop}
}

// Show starts loading pageID and returns a channel closed when the load has
// finished. A load overtaken by a later Show is discarded.
func (f *Frame) Show(ctx context.Context, pageID string) <-chan struct{} {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.pageID = pageID
	f.state = StateLoading
	f.err = nil
	f.edited = ""
	f.replaced = false
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		text, method, err := f.src.Page(ctx, pageID)

		f.mu.Lock()
		defer f.mu.Unlock()
		if gen != f.gen {
			f.log.Debug("Discarding stale preview load", zap.String("page", pageID))
			return
		}
		if err != nil {
			f.state = StateFailed
			f.err = err
			f.log.Warn("Preview unavailable", zap.String("page", pageID), zap.Error(err))
			return
		}
		if !f.replaced {
			f.setContentLocked(text)
		}
		f.state = StateReady
		f.log.Debug("Preview ready", zap.String("page", pageID), zap.Stringer("method", method))
	}()
	return done
}

// State returns the load state and the load error, if any.
func (f *Frame) State() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.err
}

// PageID returns the page the frame shows.
func (f *Frame) PageID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageID
}

// SetSize switches the viewport tier.
func (f *Frame) SetSize(size Size) error {
	switch size {
	case SizeDesktop, SizeTablet, SizeMobile:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	f.mu.Lock()
	f.size = size
	f.mu.Unlock()
	return nil
}

// Size returns the viewport tier.
func (f *Frame) Size() Size {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// ToggleDirectEdit turns in-place editing of the preview on or off.
// Turning it off drops an unflushed edit.
func (f *Frame) ToggleDirectEdit(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directEdit = enabled
	if !enabled {
		f.edited = ""
	}
}

// DirectEdit reports whether in-place editing is on.
func (f *Frame) DirectEdit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.directEdit
}

// SetContent replaces the shown document with the current document text.
func (f *Frame) SetContent(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setContentLocked(text)
	f.replaced = true
}

func (f *Frame) setContentLocked(text string) {
	f.content = text
	f.edited = ""
	f.baseline = ""
	f.region = ""
	r, err := markup.Locate(text)
	if err != nil {
		return
	}
	f.region = r.Inner(text)
	if b, err := markup.Normalize(r.Inner(text)); err == nil {
		f.baseline = b
	}
}

// Edit records region markup reported by the preview client.
func (f *Frame) Edit(regionHTML string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.directEdit {
		return ErrNotEditable
	}
	if f.state != StateReady {
		return ErrNotReady
	}
	normalized, err := markup.Normalize(regionHTML)
	if err != nil {
		return fmt.Errorf("normalizing preview edit: %w", err)
	}
	f.edited = normalized
	return nil
}

// Serialize returns the region markup of the latest preview edit, or the
// baseline when there is none.
func (f *Frame) Serialize() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.edited != "" {
		return f.edited, nil
	}
	return f.baseline, nil
}

// Baseline is the normalized region of the shown document.
func (f *Frame) Baseline() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseline
}

// BaselineRegion is the raw region text the baseline was normalized from.
func (f *Frame) BaselineRegion() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.region
}

// Document renders the document served to the preview client. baseURL
// resolves the page's relative links; with direct edit on, editable nodes
// are decorated and the edit bridge is appended.
func (f *Frame) Document(baseURL string) (string, error) {
	f.mu.Lock()
	state, content, directEdit := f.state, f.content, f.directEdit
	f.mu.Unlock()

	if state != StateReady {
		return "", ErrNotReady
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parsing preview document: %w", err)
	}
	if baseURL != "" && doc.Find("head base").Length() == 0 {
		doc.Find("head").PrependHtml(`<base href="` + html.EscapeString(baseURL) + `">`)
	}
	if directEdit {
		region := markup.RegionSelection(doc)
		markup.MarkIncludes(region)
		markup.DecorateSelection(region)
		doc.Find("body").AppendHtml(bridgeScript)
	}

	var b strings.Builder
	for _, n := range doc.Nodes {
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("rendering preview document: %w", err)
		}
	}
	return b.String(), nil
}

// bridgeScript reports edits of the region to the embedding editor.
const bridgeScript = `<script ` + markup.AttrArtifact + `="bridge">
(function () {
  var region = document.getElementById("` + markup.MainContentID + `") || document.querySelector("main") || document.body;
  region.addEventListener("input", function () {
    window.parent.postMessage({ type: "preview_edit", html: region.innerHTML }, "*");
  });
  region.addEventListener("focusout", function () {
    window.parent.postMessage({ type: "blur" }, "*");
  });
})();
</script>`
