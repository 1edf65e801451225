package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/blocks"
	"github.com/ziadkadry99/pagedit/internal/loader"
	"github.com/ziadkadry99/pagedit/internal/markup"
	"github.com/ziadkadry99/pagedit/internal/pages"
	"github.com/ziadkadry99/pagedit/internal/preview"
	"github.com/ziadkadry99/pagedit/internal/session"
	"github.com/ziadkadry99/pagedit/internal/snippets"
)

// sessionResponse is the JSON form of a session.
type sessionResponse struct {
	ID      string               `json:"id"`
	Page    session.PageInfo     `json:"page"`
	Preview session.PreviewState `json:"preview"`
}

type loadRequest struct {
	PageID string `json:"page_id"`
}

type insertRequest struct {
	Markup string `json:"markup"`
}

type blocksRequest struct {
	Blocks []blocks.Wire `json:"blocks"`
}

type blocksResponse struct {
	Blocks  []blocks.Wire `json:"blocks,omitempty"`
	Skipped []blocks.Wire `json:"skipped"`
}

type previewRequest struct {
	Size       *string `json:"size"`
	DirectEdit *bool   `json:"direct_edit"`
}

func (e *Editor) handlePages(w http.ResponseWriter, r *http.Request) {
	list := []pages.Page{}
	if e.pages != nil {
		found, err := e.pages.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if found != nil {
			list = found
		}
	}
	writeJSON(w, http.StatusOK, list)
}

func (e *Editor) handleSnippets(w http.ResponseWriter, r *http.Request) {
	list := []snippets.Snippet{}
	if e.snippets != nil {
		found, err := e.snippets.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		list = append(list, found...)
	}
	writeJSON(w, http.StatusOK, list)
}

func (e *Editor) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, e.sessions.List())
}

func (e *Editor) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	s := e.sessions.Create()
	if req.PageID != "" {
		if _, err := s.Load(r.Context(), req.PageID); err != nil {
			e.sessions.Remove(s.ID())
			writeError(w, statusFor(err), err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, describe(s))
}

// sessionFor resolves the {id} URL parameter, answering 404 itself.
func (e *Editor) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	s := e.sessions.Get(chi.URLParam(r, "id"))
	if s == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return s
}

func (e *Editor) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, describe(s))
}

func (e *Editor) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	if err := e.sessions.Remove(s.ID()); err != nil {
		e.log.Info("Session closed with unsaved changes", zap.String("session", s.ID()), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (e *Editor) handleBlocks(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	bs, err := s.Blocks()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, blocksResponse{Blocks: bs, Skipped: []blocks.Wire{}})
}

func (e *Editor) handleApplyBlocks(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	var req blocksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	skipped, err := s.ApplyBlocks(req.Blocks)
	if err != nil && !errors.Is(err, markup.ErrRegionNotFound) {
		writeError(w, statusFor(err), err)
		return
	}
	bs, err := s.Blocks()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if skipped == nil {
		skipped = []blocks.Wire{}
	}
	writeJSON(w, http.StatusOK, blocksResponse{Blocks: bs, Skipped: skipped})
}

func (e *Editor) handleLoad(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PageID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page_id is required"})
		return
	}
	if err := s.LoadPage(r.Context(), req.PageID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, describe(s))
}

func (e *Editor) handleText(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	doc, err := s.Document()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (e *Editor) handleModified(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	s.MarkModified()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (e *Editor) handleInsert(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Markup == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "markup is required"})
		return
	}
	e.insert(w, s, req.Markup)
}

func (e *Editor) handleInsertSnippet(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	if e.snippets == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snippet library configured"})
		return
	}
	fragment, err := e.snippets.Render(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	e.insert(w, s, fragment)
}

func (e *Editor) insert(w http.ResponseWriter, s *session.Session, fragment string) {
	// Markup landing outside any editable region is still inserted.
	if err := s.InsertMarkupAtCursor(fragment); err != nil && !errors.Is(err, markup.ErrRegionNotFound) {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "inserted", "cursor": s.Cursor()})
}

func (e *Editor) handleSave(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	art, err := s.Save(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(art.Text))
}

func (e *Editor) handlePreviewControls(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Size != nil {
		size, err := preview.ParseSize(*req.Size)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.SetPreviewSize(size); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}
	if req.DirectEdit != nil {
		if err := s.SetPreviewEditing(*req.DirectEdit); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.PreviewState())
}

func (e *Editor) handleRestoreDraft(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	if err := s.RestoreDraft(r.Context()); err != nil && !errors.Is(err, markup.ErrRegionNotFound) {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, describe(s))
}

func (e *Editor) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	if err := s.DiscardDraft(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (e *Editor) handlePreviewDocument(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	doc, err := s.PreviewDocument(e.baseURL)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(doc))
}

func describe(s *session.Session) sessionResponse {
	return sessionResponse{ID: s.ID(), Page: s.Info(), Preview: s.PreviewState()}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNoDocument),
		errors.Is(err, session.ErrInactiveView),
		errors.Is(err, session.ErrStale):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoDraft),
		errors.Is(err, snippets.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, loader.ErrInvalidPage),
		errors.Is(err, preview.ErrInvalidSize),
		errors.Is(err, blocks.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, preview.ErrNotReady):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
