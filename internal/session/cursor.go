package session

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/ziadkadry99/pagedit/internal/markup"
)

// Editing clients count string positions in UTF-16 code units; the session
// keeps byte offsets into the document text.

// byteOffset converts a UTF-16 offset into text to a byte offset, clamped to
// the text and never splitting a rune.
func byteOffset(text string, units int) int {
	if units <= 0 {
		return 0
	}
	n := 0
	for i, r := range text {
		if n >= units {
			return i
		}
		n += utf16.RuneLen(r)
	}
	return len(text)
}

// runeStart clamps pos to text and moves it back to the start of the rune
// it falls in.
func runeStart(text string, pos int) int {
	pos = min(max(pos, 0), len(text))
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// remapCursor moves a byte cursor across the replacement of r's inner markup
// by n bytes. A cursor past the region keeps its place in the text after it;
// one inside the region stays within the new region. text is the result.
func remapCursor(text string, pos int, r markup.Region, n int) int {
	switch {
	case pos >= r.End:
		pos += n - (r.End - r.Start)
	case pos > r.Start:
		pos = min(pos, r.Start+n)
	}
	return runeStart(text, pos)
}

// utf16Offset converts a byte offset into text to a UTF-16 offset.
func utf16Offset(text string, pos int) int {
	pos = runeStart(text, pos)
	n := 0
	for _, r := range text[:pos] {
		n += utf16.RuneLen(r)
	}
	return n
}
