package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/markup"
	"github.com/ziadkadry99/pagedit/internal/preview"
)

// editTarget is a view whose edits are written back into the document
// region. A serialization equal to Baseline means the view is unchanged and
// stands for BaselineRegion verbatim.
type editTarget interface {
	Serialize() (string, error)
	Baseline() string
	BaselineRegion() string
}

func (s *Session) targetLocked() editTarget {
	if s.active == ViewPreview {
		return s.frame
	}
	return s.surface
}

// SourceEdited records text typed in the source view. The rendered view and
// preview follow after the quiet period. cursor is a UTF-16 offset.
func (s *Session) SourceEdited(text string, cursor int) error {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return ErrNoDocument
	}
	s.cursor = byteOffset(text, cursor)
	if text == s.doc.Text {
		return nil
	}
	s.doc.Text = text
	s.markDirtyLocked()
	// The source now holds the newest content; a pending write from the
	// rendered side would overwrite it.
	s.toSource.cancel()
	s.toRendered.schedule(func() { s.flushToRenderedLocked() })
	return nil
}

// RenderedEdited records markup reported by the rendered view. The document
// follows after the quiet period.
func (s *Session) RenderedEdited(html string) error {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return ErrNoDocument
	}
	if s.active != ViewRendered {
		s.notice(LevelWarning, "The rendered view is read-only while preview editing is on.")
		return ErrInactiveView
	}
	if err := s.surface.SetContent(html); err != nil {
		return err
	}
	s.toSource.schedule(func() { s.flushPendingLocked(s.surface, ViewRendered) })
	return nil
}

// PreviewEdited records region markup reported by the preview. The
// document follows after the quiet period.
func (s *Session) PreviewEdited(html string) error {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return ErrNoDocument
	}
	if s.active != ViewPreview {
		s.notice(LevelWarning, "Preview editing is off; edit in the rendered view.")
		return ErrInactiveView
	}
	if err := s.frame.Edit(html); err != nil {
		return err
	}
	s.toSource.schedule(func() { s.flushPendingLocked(s.frame, ViewPreview) })
	return nil
}

// FlushSourceToRendered projects the document into the rendered view and
// the preview now, cancelling the pending debounced projection.
func (s *Session) FlushSourceToRendered() error {
	s.lock()
	defer s.unlock()
	return s.flushToRenderedLocked()
}

// FlushRenderedToSource writes the active view into the document now,
// cancelling the pending debounced write.
func (s *Session) FlushRenderedToSource() error {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return ErrNoDocument
	}
	return s.flushToSourceLocked(s.targetLocked(), s.active)
}

func (s *Session) flushToRenderedLocked() error {
	s.toRendered.cancel()
	if !s.loaded {
		return ErrNoDocument
	}
	s.frame.SetContent(s.doc.Text)
	s.emitPreviewLocked(true)

	if err := s.surface.Project(s.doc.Text, s.includes); err != nil {
		if errors.Is(err, markup.ErrRegionNotFound) {
			s.notice(LevelWarning, "No editable region found in %s; the rendered view was not updated.", s.doc.PageID)
		} else {
			s.notice(LevelError, "Could not render %s: %v", s.doc.PageID, err)
		}
		return err
	}
	s.emitRenderedLocked()
	return nil
}

// flushToSourceLocked writes the region serialized by target into the
// document. Nothing is written when the result equals the current text.
func (s *Session) flushToSourceLocked(target editTarget, origin View) error {
	s.toSource.cancel()

	r, err := markup.Locate(s.doc.Text)
	if err != nil {
		s.notice(LevelWarning, "No editable region found in %s; edits were not written to the source.", s.doc.PageID)
		return err
	}
	serialized, err := target.Serialize()
	if err != nil {
		s.notice(LevelError, "Could not read the %s view: %v", origin, err)
		return err
	}
	inner := serialized
	if serialized == target.Baseline() {
		inner = target.BaselineRegion()
	}
	candidate := r.Replace(s.doc.Text, inner)
	if candidate == s.doc.Text {
		return nil
	}

	s.doc.Text = candidate
	s.cursor = remapCursor(candidate, s.cursor, r, len(inner))
	s.markDirtyLocked()
	s.emit(Event{Type: EventSource, Text: candidate, Cursor: utf16Offset(candidate, s.cursor)})
	s.log.Debug("Wrote view into source", zap.Stringer("marker", r.Marker), zap.String("view", string(origin)))

	s.frame.SetContent(candidate)
	if origin == ViewRendered {
		s.emitPreviewLocked(true)
		return nil
	}
	// The preview already shows the edit; only the rendered view follows.
	if err := s.surface.Project(candidate, s.includes); err != nil {
		s.log.Warn("Projecting preview edit failed", zap.Error(err))
	}
	s.emitRenderedLocked()
	s.emitPreviewLocked(false)
	return nil
}

// flushPendingLocked writes a pending view edit before an operation that
// reads the document. A failure has already raised a notice; the operation
// goes on with the current text.
func (s *Session) flushPendingLocked(target editTarget, origin View) {
	if err := s.flushToSourceLocked(target, origin); err != nil {
		s.log.Debug("Pending edit not written", zap.String("view", string(origin)), zap.Error(err))
	}
}

// SetPreviewEditing turns direct editing of the preview on or off. The
// preview and the rendered view are never editable at the same time; any
// pending edit of the previously active view is written first.
func (s *Session) SetPreviewEditing(enabled bool) error {
	s.lock()
	defer s.unlock()
	if s.loaded && s.toSource.isPending() {
		if err := s.flushToSourceLocked(s.targetLocked(), s.active); err != nil {
			return err
		}
	}
	s.frame.ToggleDirectEdit(enabled)
	if enabled {
		s.active = ViewPreview
		s.surface.DisableEditing()
	} else {
		s.active = ViewRendered
		s.surface.EnableEditing()
	}
	if s.loaded {
		s.emitRenderedLocked()
		s.emitPreviewLocked(true)
		s.emitPageLocked()
	}
	return nil
}

// SetPreviewSize switches the preview viewport tier.
func (s *Session) SetPreviewSize(size preview.Size) error {
	s.lock()
	defer s.unlock()
	if err := s.frame.SetSize(size); err != nil {
		return err
	}
	s.emitPreviewLocked(false)
	return nil
}

// ActiveView returns the view currently accepting edits.
func (s *Session) ActiveView() View {
	s.lock()
	defer s.unlock()
	return s.active
}

// SetCursor records the source cursor as a UTF-16 offset.
func (s *Session) SetCursor(pos int) {
	s.lock()
	defer s.unlock()
	s.cursor = byteOffset(s.doc.Text, pos)
}

// Cursor returns the source cursor as a UTF-16 offset.
func (s *Session) Cursor() int {
	s.lock()
	defer s.unlock()
	return utf16Offset(s.doc.Text, s.cursor)
}

// InsertMarkupAtCursor inserts fragment into the document at the source
// cursor and projects the result immediately.
func (s *Session) InsertMarkupAtCursor(fragment string) error {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return ErrNoDocument
	}
	if s.toSource.isPending() {
		s.flushPendingLocked(s.targetLocked(), s.active)
	}
	s.snapshotLocked()

	pos := runeStart(s.doc.Text, s.cursor)
	s.doc.Text = s.doc.Text[:pos] + fragment + s.doc.Text[pos:]
	s.cursor = pos + len(fragment)
	s.markDirtyLocked()
	s.emit(Event{Type: EventSource, Text: s.doc.Text, Cursor: utf16Offset(s.doc.Text, s.cursor)})
	return s.flushToRenderedLocked()
}

// LoadPage loads pageID, discarding the result document.
func (s *Session) LoadPage(ctx context.Context, pageID string) error {
	_, err := s.Load(ctx, pageID)
	return err
}

// MarkModified flags the document as changed by an outside collaborator.
func (s *Session) MarkModified() {
	s.lock()
	defer s.unlock()
	if s.loaded {
		s.markDirtyLocked()
	}
}
