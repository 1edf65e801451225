package session

import "go.uber.org/zap"

// Blur schedules a history snapshot once the rendered view has been out of
// focus for the quiet period.
func (s *Session) Blur() {
	s.lock()
	defer s.unlock()
	if s.loaded {
		s.blur.schedule(s.snapshotLocked)
	}
}

// Paste records a history snapshot before pasted content lands.
func (s *Session) Paste() {
	s.Snapshot()
}

// Snapshot records the rendered view in the undo history.
func (s *Session) Snapshot() {
	s.lock()
	defer s.unlock()
	s.blur.cancel()
	s.snapshotLocked()
}

func (s *Session) snapshotLocked() {
	if !s.loaded {
		return
	}
	// The surface lags behind preview edits until they are written.
	if s.active == ViewPreview && s.toSource.isPending() {
		s.flushPendingLocked(s.frame, ViewPreview)
	}
	serialized, err := s.surface.Serialize()
	if err != nil {
		s.log.Warn("Snapshot failed", zap.Error(err))
		return
	}
	if s.history.Snapshot(serialized) {
		s.emitHistoryLocked()
	}
}

// Undo restores the previous snapshot of the rendered view and writes it to
// the document immediately. It reports false when there was nothing to undo.
func (s *Session) Undo() (bool, error) {
	return s.step(s.history.Undo, "Nothing to undo.")
}

// Redo reapplies the snapshot most recently undone.
func (s *Session) Redo() (bool, error) {
	return s.step(s.history.Redo, "Nothing to redo.")
}

func (s *Session) step(pop func(current string) (string, bool), empty string) (bool, error) {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return false, ErrNoDocument
	}
	if s.active == ViewPreview && s.toSource.isPending() {
		s.flushPendingLocked(s.frame, ViewPreview)
	}
	current, err := s.surface.Serialize()
	if err != nil {
		return false, err
	}
	entry, ok := pop(current)
	if !ok {
		s.notice(LevelInfo, "%s", empty)
		return false, nil
	}
	if err := s.surface.Restore(entry); err != nil {
		return false, err
	}
	s.blur.cancel()
	s.emitRenderedLocked()
	s.emitHistoryLocked()
	return true, s.flushToSourceLocked(s.surface, ViewRendered)
}
