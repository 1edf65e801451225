package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/blocks"
)

// Blocks returns the content blocks of the rendered view for guided editing.
func (s *Session) Blocks() ([]blocks.Wire, error) {
	s.lock()
	defer s.unlock()
	if !s.loaded {
		return nil, ErrNoDocument
	}
	bs, err := s.surface.Blocks()
	if err != nil {
		return nil, err
	}
	return blocks.Encode(bs), nil
}

// ApplyBlocks writes edited blocks into the rendered view and the document
// immediately, recording the previous state in the undo history when
// anything changed. Blocks whose original markup is no longer in the view
// are returned unapplied.
func (s *Session) ApplyBlocks(ws []blocks.Wire) ([]blocks.Wire, error) {
	bs, err := blocks.Decode(ws)
	if err != nil {
		return nil, err
	}

	s.lock()
	defer s.unlock()
	if !s.loaded {
		return nil, ErrNoDocument
	}
	if s.active != ViewRendered {
		s.notice(LevelWarning, "The rendered view is read-only while preview editing is on.")
		return nil, ErrInactiveView
	}

	before, err := s.surface.Serialize()
	if err != nil {
		return nil, err
	}
	skipped, err := s.surface.ApplyBlocks(bs)
	if err != nil {
		return nil, fmt.Errorf("applying blocks: %w", err)
	}
	if after, _ := s.surface.Serialize(); after != before {
		s.blur.cancel()
		if s.history.Snapshot(before) {
			s.emitHistoryLocked()
		}
	}
	if len(skipped) > 0 {
		s.notice(LevelWarning, "%d block(s) changed since they were read and were not applied.", len(skipped))
		s.log.Debug("Blocks skipped", zap.Int("skipped", len(skipped)), zap.Int("blocks", len(bs)))
	}
	s.emitRenderedLocked()
	return blocks.Encode(skipped), s.flushToSourceLocked(s.surface, ViewRendered)
}
