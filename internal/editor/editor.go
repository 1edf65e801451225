// Package editor binds browser clients to editing sessions: the JSON API,
// the live-sync WebSocket, the preview document and the editor page itself.
package editor

import (
	"context"
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/pages"
	"github.com/ziadkadry99/pagedit/internal/session"
	"github.com/ziadkadry99/pagedit/internal/snippets"
)

// PageLister lists the pages of the site.
type PageLister interface {
	List(ctx context.Context) ([]pages.Page, error)
}

// SnippetSource lists and renders insertable snippets.
type SnippetSource interface {
	List() ([]snippets.Snippet, error)
	Render(name string) (string, error)
}

// Editor serves the editing UI and API.
type Editor struct {
	sessions *session.Manager
	pages    PageLister
	snippets SnippetSource
	// baseURL is set as the base of preview documents so relative links
	// resolve against the site.
	baseURL string
	log     *zap.Logger
}

// New creates an Editor. pages and snips may be nil.
func New(sessions *session.Manager, pages PageLister, snips SnippetSource, baseURL string, log *zap.Logger) *Editor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Editor{
		sessions: sessions,
		pages:    pages,
		snippets: snips,
		baseURL:  baseURL,
		log:      log.Named("editor"),
	}
}

// RegisterRoutes mounts all editor routes onto the given router.
func (e *Editor) RegisterRoutes(r chi.Router) {
	r.Get("/", e.ServeIndex)
	r.Get("/api/pages", e.handlePages)
	r.Get("/api/snippets", e.handleSnippets)
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", e.handleListSessions)
		r.Post("/", e.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", e.handleGetSession)
			r.Delete("/", e.handleDeleteSession)
			r.Post("/load", e.handleLoad)
			r.Get("/text", e.handleText)
			r.Post("/modified", e.handleModified)
			r.Post("/insert", e.handleInsert)
			r.Post("/snippets/{name}", e.handleInsertSnippet)
			r.Get("/blocks", e.handleBlocks)
			r.Post("/blocks", e.handleApplyBlocks)
			r.Post("/save", e.handleSave)
			r.Put("/preview", e.handlePreviewControls)
			r.Post("/draft/restore", e.handleRestoreDraft)
			r.Delete("/draft", e.handleDiscardDraft)
		})
	})
	r.Get("/preview/{id}", e.handlePreviewDocument)
	r.Get("/ws/sessions/{id}", e.handleWebSocket)
}

//go:embed index.html
var indexHTML []byte

// ServeIndex serves the embedded editor page.
func (e *Editor) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}
