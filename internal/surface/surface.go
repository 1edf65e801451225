// Package surface implements the rendered editing view: a projection of a
// page's body region that the operator edits in place.
package surface

import (
	"fmt"

	"github.com/ziadkadry99/pagedit/internal/blocks"
	"github.com/ziadkadry99/pagedit/internal/markup"
)

// Surface holds the projected region of one document. It is not safe for
// concurrent use; the owning session serializes access.
type Surface struct {
	// projected is the region with includes filled in and scripts
	// neutralized, without edit decorations.
	projected string
	baseline  string
	// region is the document text the last projection was taken from.
	region   string
	includes map[string]string
	styles   string
	editing  bool
	marker   markup.Marker
}

// New returns an empty surface with editing enabled.
func New() *Surface {
	return &Surface{editing: true}
}

// Project rebuilds the surface from document text. includes maps include
// placeholder names to fragment markup.
func (s *Surface) Project(text string, includes map[string]string) error {
	r, err := markup.Locate(text)
	if err != nil {
		return fmt.Errorf("projecting surface: %w", err)
	}
	projected, err := markup.Prepare(r.Inner(text), includes)
	if err != nil {
		return fmt.Errorf("projecting surface: %w", err)
	}
	s.projected = projected
	s.includes = includes
	s.marker = r.Marker
	s.region = r.Inner(text)
	s.baseline, err = s.Serialize()
	if err != nil {
		return fmt.Errorf("projecting surface: %w", err)
	}
	return nil
}

// Serialize returns the surface content as document markup: decorations
// removed, include placeholders and scripts restored.
func (s *Surface) Serialize() (string, error) {
	return markup.Restore(s.projected)
}

// Baseline is the serialization taken right after the last projection.
func (s *Surface) Baseline() string { return s.baseline }

// BaselineRegion is the region text of the document the baseline was taken
// from. A serialization equal to Baseline stands for this text unchanged.
func (s *Surface) BaselineRegion() string { return s.region }

// Marker reports which structural marker the last projection used.
func (s *Surface) Marker() markup.Marker { return s.marker }

// SetContent replaces the surface content with markup reported by an editing
// client. Decorations are stripped; include and script markers are kept.
func (s *Surface) SetContent(html string) error {
	stripped, err := markup.Strip(html)
	if err != nil {
		return fmt.Errorf("updating surface: %w", err)
	}
	s.projected = stripped
	return nil
}

// Restore replaces the surface content with a serialized snapshot, as taken
// by Serialize.
func (s *Surface) Restore(serialized string) error {
	projected, err := markup.Prepare(serialized, s.includes)
	if err != nil {
		return fmt.Errorf("restoring surface: %w", err)
	}
	s.projected = projected
	return nil
}

// EnableEditing turns on in-place editing decorations.
func (s *Surface) EnableEditing() { s.editing = true }

// DisableEditing turns decorations off; HTML then returns inert markup.
func (s *Surface) DisableEditing() { s.editing = false }

// Editing reports whether in-place editing is enabled.
func (s *Surface) Editing() bool { return s.editing }

// HTML returns the markup shown to the client, decorated when editing is
// enabled.
func (s *Surface) HTML() (string, error) {
	if !s.editing {
		return s.projected, nil
	}
	out, _, err := markup.Decorate(s.projected)
	if err != nil {
		return "", fmt.Errorf("decorating surface: %w", err)
	}
	return out, nil
}

// SetStyles sets the scoped stylesheet text shown with the surface.
func (s *Surface) SetStyles(css string) { s.styles = css }

// Styles returns the scoped stylesheet text.
func (s *Surface) Styles() string { return s.styles }

// Blocks extracts content blocks from the serialized surface.
func (s *Surface) Blocks() ([]blocks.Block, error) {
	serialized, err := s.Serialize()
	if err != nil {
		return nil, err
	}
	return blocks.Extract(serialized), nil
}

// ApplyBlocks writes edited blocks into the surface and returns the blocks
// whose span could not be found.
func (s *Surface) ApplyBlocks(bs []blocks.Block) ([]blocks.Block, error) {
	serialized, err := s.Serialize()
	if err != nil {
		return nil, err
	}
	out, skipped := blocks.Apply(bs, serialized)
	if out == serialized {
		return skipped, nil
	}
	return skipped, s.Restore(out)
}
