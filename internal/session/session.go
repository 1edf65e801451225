// Package session implements the editing controller: one loaded page, its
// rendered surface and preview frame, and the debounced synchronization
// between them and the document text.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/debounce"
	"github.com/ziadkadry99/pagedit/internal/history"
	"github.com/ziadkadry99/pagedit/internal/loader"
	"github.com/ziadkadry99/pagedit/internal/preview"
	"github.com/ziadkadry99/pagedit/internal/surface"
)

const (
	DefaultQuietPeriod   = time.Second
	DefaultAutosaveDelay = 2 * time.Second
)

// Options configures a session. Zero values select defaults.
type Options struct {
	QuietPeriod     time.Duration
	AutosaveDelay   time.Duration
	HistoryCapacity int
	// Clock drives all debounced work; nil means the wall clock.
	Clock   debounce.Clock
	Drafts  DraftStore
	Exports ExportLog
	Log     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.QuietPeriod <= 0 {
		o.QuietPeriod = DefaultQuietPeriod
	}
	if o.AutosaveDelay <= 0 {
		o.AutosaveDelay = DefaultAutosaveDelay
	}
	if o.Clock == nil {
		o.Clock = debounce.RealClock()
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return o
}

// Session edits one page at a time. All methods are safe for concurrent use.
type Session struct {
	id      string
	created time.Time
	opts    Options
	loader  PageLoader
	log     *zap.Logger

	mu       sync.Mutex
	loaded   bool
	closed   bool
	doc      Document
	cursor   int
	includes map[string]string
	css      string
	method   loader.Method
	active   View
	// draftAt is set while an autosaved draft differs from the document.
	draftAt *time.Time

	surface *surface.Surface
	frame   *preview.Frame
	history *history.Manager

	// epoch increments on every load; results of older loads are dropped.
	epoch      uint64
	cancelLoad context.CancelFunc

	toRendered *pending
	toSource   *pending
	autosave   *pending
	blur       *pending

	listeners map[int]Listener
	nextID    int
	outbox    []Event
}

// New creates a session without a page.
func New(id string, l PageLoader, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		id:        id,
		created:   time.Now(),
		opts:      opts,
		loader:    l,
		log:       opts.Log.Named("session").With(zap.String("session", id)),
		active:    ViewRendered,
		surface:   surface.New(),
		history:   history.New(opts.HistoryCapacity),
		listeners: make(map[int]Listener),
	}
	s.frame = preview.New(l, opts.Log)
	s.toRendered = s.newPending(opts.QuietPeriod)
	s.toSource = s.newPending(opts.QuietPeriod)
	s.autosave = s.newPending(opts.AutosaveDelay)
	s.blur = s.newPending(opts.QuietPeriod)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Subscribe registers a listener and returns a function that removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) lock() { s.mu.Lock() }

// unlock releases the session and publishes events queued while it was
// held, so listeners never run under the session lock.
func (s *Session) unlock() {
	out := s.outbox
	s.outbox = nil
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, ev := range out {
		for _, l := range ls {
			l.Publish(ev)
		}
	}
}

func (s *Session) emit(ev Event) {
	if ev.PageID == "" {
		ev.PageID = s.doc.PageID
	}
	s.outbox = append(s.outbox, ev)
}

func (s *Session) notice(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.emit(Event{Type: EventNotice, Notice: &Notice{Level: level, Message: msg}})
}

// Load makes pageID the current page. Pending work for the previous page is
// cancelled and its history cleared. When another Load starts before this
// one completes, this one returns ErrStale and changes nothing.
func (s *Session) Load(ctx context.Context, pageID string) (*Document, error) {
	s.lock()
	if s.closed {
		s.unlock()
		return nil, ErrClosed
	}
	s.epoch++
	epoch := s.epoch
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	// The load context outlives this call: it also bounds the preview load.
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelLoad = cancel
	s.cancelPendingLocked()
	s.unlock()

	reqCtx, stop := context.WithCancel(ctx)
	defer stop()
	context.AfterFunc(loadCtx, stop)
	res, err := s.loader.Load(reqCtx, pageID)

	s.lock()
	defer s.unlock()
	if epoch != s.epoch || s.closed {
		s.log.Debug("Discarding stale page load", zap.String("page", pageID))
		return nil, ErrStale
	}
	if err != nil {
		s.notice(LevelError, "Could not load %s: %v", pageID, err)
		return nil, fmt.Errorf("loading %s: %w", pageID, err)
	}

	s.loaded = true
	s.doc = Document{PageID: res.PageID, Text: res.HTML}
	s.cursor = 0
	s.includes = res.Includes
	s.css = res.CSS
	s.method = res.Method
	s.draftAt = nil
	s.history.Clear()
	s.surface.SetStyles(res.CSS)

	done := s.frame.Show(loadCtx, res.PageID)
	go s.watchFrame(epoch, done)

	if err := s.flushToRenderedLocked(); err != nil {
		s.log.Warn("Page has no editable region", zap.String("page", res.PageID), zap.Error(err))
	}
	s.checkDraftLocked(ctx)

	s.emit(Event{Type: EventSource, Text: s.doc.Text})
	s.emitPageLocked()
	s.emitHistoryLocked()
	switch res.Method {
	case loader.MethodBuiltin:
		s.notice(LevelWarning, "%s could not be loaded from the site; showing built-in content.", res.PageID)
	case loader.MethodSynthetic:
		s.notice(LevelWarning, "%s could not be loaded; showing a placeholder page.", res.PageID)
	}

	doc := s.doc
	return &doc, nil
}

func (s *Session) watchFrame(epoch uint64, done <-chan struct{}) {
	<-done
	s.lock()
	defer s.unlock()
	if epoch != s.epoch || s.closed {
		return
	}
	if state, err := s.frame.State(); state == preview.StateFailed {
		s.notice(LevelWarning, "Preview unavailable for %s; use the source view. (%v)", s.doc.PageID, err)
	}
	s.emitPreviewLocked(true)
}

func (s *Session) checkDraftLocked(ctx context.Context) {
	if s.opts.Drafts == nil {
		return
	}
	d, err := s.opts.Drafts.Get(ctx, s.doc.PageID)
	if err != nil {
		s.log.Warn("Draft lookup failed", zap.String("page", s.doc.PageID), zap.Error(err))
		return
	}
	if d == nil || d.Content == s.doc.Text {
		return
	}
	ts := d.Timestamp
	s.draftAt = &ts
	s.notice(LevelInfo, "An autosaved draft of %s from %s is available.", s.doc.PageID, ts.Local().Format(time.DateTime))
}

// Document returns a copy of the current document.
func (s *Session) Document() (Document, error) {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return Document{}, ErrNoDocument
	}
	return s.doc, nil
}

// Text returns the document text, or "" before a page is loaded.
func (s *Session) Text() string {
	s.lock()
	defer s.unlock()
	return s.doc.Text
}

// CurrentText is Text, for collaborators.
func (s *Session) CurrentText() string { return s.Text() }

// Dirty reports whether the document changed since it was loaded or saved.
func (s *Session) Dirty() bool {
	s.lock()
	defer s.unlock()
	return s.doc.Dirty
}

// Info returns the page summary.
func (s *Session) Info() PageInfo {
	s.lock()
	defer s.unlock()
	return s.pageInfoLocked()
}

func (s *Session) pageInfoLocked() PageInfo {
	info := PageInfo{
		PageID: s.doc.PageID,
		Method: s.method,
		Dirty:  s.doc.Dirty,
		Active: s.active,
	}
	if s.draftAt != nil {
		info.DraftAvailable = true
		info.DraftTime = s.draftAt
	}
	return info
}

// Rendered returns the markup and scoped styles of the rendered view.
func (s *Session) Rendered() (html, css string, err error) {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return "", "", ErrNoDocument
	}
	html, err = s.surface.HTML()
	return html, s.surface.Styles(), err
}

// PreviewDocument renders the preview document with baseURL as its base.
func (s *Session) PreviewDocument(baseURL string) (string, error) {
	return s.frame.Document(baseURL)
}

// PreviewState describes the preview frame.
func (s *Session) PreviewState() PreviewState {
	state, _ := s.frame.State()
	return PreviewState{State: state, Size: s.frame.Size(), DirectEdit: s.frame.DirectEdit()}
}

// Refresh republishes the full view state, for newly connected clients.
func (s *Session) Refresh() {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return
	}
	s.emit(Event{Type: EventSource, Text: s.doc.Text, Cursor: utf16Offset(s.doc.Text, s.cursor)})
	s.emitRenderedLocked()
	s.emitPreviewLocked(false)
	s.emitPageLocked()
	s.emitHistoryLocked()
}

func (s *Session) emitRenderedLocked() {
	html, err := s.surface.HTML()
	if err != nil {
		s.log.Warn("Rendering surface failed", zap.Error(err))
		return
	}
	s.emit(Event{Type: EventRendered, HTML: html, CSS: s.surface.Styles(), Editing: s.surface.Editing()})
}

func (s *Session) emitPreviewLocked(reload bool) {
	st := s.PreviewState()
	st.Reload = reload
	s.emit(Event{Type: EventPreview, Preview: &st})
}

func (s *Session) emitPageLocked() {
	info := s.pageInfoLocked()
	s.emit(Event{Type: EventPage, Page: &info})
}

func (s *Session) emitHistoryLocked() {
	s.emit(Event{Type: EventHistory, History: &HistoryState{
		CanUndo: s.history.CanUndo(),
		CanRedo: s.history.CanRedo(),
	}})
}

// Close cancels pending work and detaches all listeners. Unsaved changes
// not yet autosaved are lost.
func (s *Session) Close() error {
	s.lock()
	defer s.unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.epoch++
	s.cancelPendingLocked()
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.listeners = make(map[int]Listener)
	s.outbox = nil
	var err error
	if s.doc.Dirty {
		err = fmt.Errorf("closing session %s: %w", s.id, errUnsaved)
	}
	return err
}

var errUnsaved = errors.New("unsaved changes discarded")

func (s *Session) cancelPendingLocked() {
	s.toRendered.cancel()
	s.toSource.cancel()
	s.autosave.cancel()
	s.blur.cancel()
}

// pending is a debounced task bound to the session. Scheduled callbacks run
// under the session lock and are dropped when cancelled after firing but
// before acquiring the lock.
type pending struct {
	s    *Session
	task *debounce.Task
	gen  uint64
}

func (s *Session) newPending(delay time.Duration) *pending {
	return &pending{s: s, task: debounce.NewTask(s.opts.Clock, delay)}
}

// schedule must be called with the session locked.
func (p *pending) schedule(f func()) {
	p.gen++
	gen := p.gen
	p.task.Schedule(func() {
		p.s.lock()
		defer p.s.unlock()
		if gen != p.gen || p.s.closed {
			return
		}
		p.gen++
		f()
	})
}

// cancel must be called with the session locked.
func (p *pending) cancel() bool {
	p.gen++
	return p.task.Cancel()
}

// isPending must be called with the session locked.
func (p *pending) isPending() bool { return p.task.Pending() }
