package session

import (
	"context"
	"errors"
	"time"

	"github.com/ziadkadry99/pagedit/internal/drafts"
	"github.com/ziadkadry99/pagedit/internal/loader"
	"github.com/ziadkadry99/pagedit/internal/preview"
)

var (
	// ErrNoDocument is returned by operations that need a loaded page.
	ErrNoDocument = errors.New("no page loaded")
	// ErrStale is returned by a load overtaken by a later load.
	ErrStale = errors.New("load superseded by a newer page")
	// ErrInactiveView is returned for edits from the view that is not the
	// active edit target.
	ErrInactiveView = errors.New("view is not the active edit target")
	// ErrNoDraft is returned when restoring a page without a draft.
	ErrNoDraft = errors.New("no draft for page")
	// ErrClosed is returned after the session was closed.
	ErrClosed = errors.New("session closed")
)

// Document is the page being edited. Text is the single source of truth.
type Document struct {
	PageID string `json:"page_id"`
	Text   string `json:"text"`
	Dirty  bool   `json:"dirty"`
}

// View names an editable projection.
type View string

const (
	ViewRendered View = "rendered"
	ViewPreview  View = "preview"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a non-blocking message for the operator.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// EventType tags outbound events.
type EventType string

const (
	EventPage     EventType = "page"
	EventSource   EventType = "source"
	EventRendered EventType = "rendered"
	EventPreview  EventType = "preview"
	EventNotice   EventType = "notice"
	EventHistory  EventType = "history"
)

// Event is published to session listeners whenever a view must be updated.
type Event struct {
	Type    EventType     `json:"type"`
	PageID  string        `json:"page_id,omitempty"`
	Text    string        `json:"text,omitempty"`
	Cursor  int           `json:"cursor,omitempty"`
	HTML    string        `json:"html,omitempty"`
	CSS     string        `json:"css,omitempty"`
	Editing bool          `json:"editing,omitempty"`
	Notice  *Notice       `json:"notice,omitempty"`
	History *HistoryState `json:"history,omitempty"`
	Preview *PreviewState `json:"preview,omitempty"`
	Page    *PageInfo     `json:"page,omitempty"`
}

// HistoryState tells clients which history actions are available.
type HistoryState struct {
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

// PreviewState describes the preview frame.
type PreviewState struct {
	State      preview.State `json:"state"`
	Size       preview.Size  `json:"size"`
	DirectEdit bool          `json:"direct_edit"`
	// Reload asks clients to fetch the preview document again.
	Reload bool `json:"reload,omitempty"`
}

// PageInfo describes the loaded page.
type PageInfo struct {
	PageID         string        `json:"page_id"`
	Method         loader.Method `json:"method"`
	Dirty          bool          `json:"dirty"`
	Active         View          `json:"active"`
	DraftAvailable bool          `json:"draft_available"`
	DraftTime      *time.Time    `json:"draft_time,omitempty"`
}

// Listener receives session events. Publish must not block.
type Listener interface {
	Publish(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) Publish(e Event) { f(e) }

// PageLoader is the resource loader used by sessions.
type PageLoader interface {
	Load(ctx context.Context, pageID string) (*loader.Result, error)
	Page(ctx context.Context, pageID string) (string, loader.Method, error)
	Fragment(ctx context.Context, path string) (string, error)
	SitePath(pageID, href string) (string, bool)
}

// DraftStore persists autosave drafts.
type DraftStore interface {
	Save(ctx context.Context, d drafts.Draft) error
	Get(ctx context.Context, pageID string) (*drafts.Draft, error)
	Delete(ctx context.Context, pageID string) error
}

// ExportLog records saved pages.
type ExportLog interface {
	RecordExport(ctx context.Context, e drafts.Export) (*drafts.Export, error)
}
