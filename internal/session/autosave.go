package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/drafts"
)

func (s *Session) markDirtyLocked() {
	was := s.doc.Dirty
	s.doc.Dirty = true
	if !was {
		s.emitPageLocked()
	}
	if s.opts.Drafts != nil {
		s.autosave.schedule(s.autosaveLocked)
	}
}

func (s *Session) autosaveLocked() {
	if !s.loaded || !s.doc.Dirty {
		return
	}
	html, _ := s.surface.Serialize()
	d := drafts.Draft{
		PageID:      s.doc.PageID,
		Content:     s.doc.Text,
		HTMLContent: html,
		CSSContent:  s.css,
		Timestamp:   time.Now(),
	}
	if err := s.opts.Drafts.Save(context.Background(), d); err != nil {
		s.log.Warn("Autosave failed", zap.String("page", d.PageID), zap.Error(err))
		s.notice(LevelWarning, "Autosave failed: %v", err)
		return
	}
	s.log.Debug("Draft saved", zap.String("page", d.PageID), zap.Int("bytes", len(d.Content)))
}

// RestoreDraft replaces the document with its autosaved draft. The previous
// rendered state stays available to Undo.
func (s *Session) RestoreDraft(ctx context.Context) error {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return ErrNoDocument
	}
	if s.opts.Drafts == nil {
		return ErrNoDraft
	}
	d, err := s.opts.Drafts.Get(ctx, s.doc.PageID)
	if err != nil {
		return err
	}
	if d == nil {
		return ErrNoDraft
	}

	s.snapshotLocked()
	s.toSource.cancel()
	s.doc.Text = d.Content
	s.cursor = 0
	s.draftAt = nil
	s.markDirtyLocked()
	s.emit(Event{Type: EventSource, Text: s.doc.Text})
	s.emitPageLocked()
	s.notice(LevelInfo, "Restored the draft of %s from %s.", d.PageID, d.Timestamp.Local().Format(time.DateTime))
	return s.flushToRenderedLocked()
}

// DiscardDraft deletes the autosaved draft of the current page.
func (s *Session) DiscardDraft(ctx context.Context) error {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return ErrNoDocument
	}
	if s.opts.Drafts == nil {
		return nil
	}
	s.autosave.cancel()
	if err := s.opts.Drafts.Delete(ctx, s.doc.PageID); err != nil {
		return err
	}
	s.draftAt = nil
	s.emitPageLocked()
	return nil
}
