package blocks

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when decoding a block of an unsupported kind.
var ErrUnknownKind = errors.New("unknown block kind")

// Wire is the JSON form of a block.
type Wire struct {
	Kind         Kind              `json:"kind"`
	Tag          string            `json:"tag"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	DisplayText  string            `json:"display_text"`
	OriginalSpan string            `json:"original_span"`
	Editable     bool              `json:"editable"`
	Level        int               `json:"level,omitempty"`
	Text         string            `json:"text,omitempty"`
	Src          string            `json:"src,omitempty"`
	Alt          string            `json:"alt,omitempty"`
	Href         string            `json:"href,omitempty"`
}

// Encode converts blocks to their JSON form.
func Encode(blocks []Block) []Wire {
	out := make([]Wire, 0, len(blocks))
	for _, b := range blocks {
		sp := b.span()
		w := Wire{
			Kind:         b.Kind(),
			Tag:          sp.Tag,
			Attributes:   sp.Attributes,
			DisplayText:  b.DisplayText(),
			OriginalSpan: sp.Original,
			Editable:     sp.Editable,
		}
		switch v := b.(type) {
		case *Heading:
			w.Level, w.Text = v.Level, v.Text
		case *Paragraph:
			w.Text = v.Text
		case *Image:
			w.Src, w.Alt = v.Src, v.Alt
		case *Link:
			w.Href, w.Text = v.Href, v.Text
		}
		out = append(out, w)
	}
	return out
}

// Decode converts JSON blocks back into blocks.
func Decode(ws []Wire) ([]Block, error) {
	out := make([]Block, 0, len(ws))
	for i, w := range ws {
		sp := Span{Tag: w.Tag, Attributes: w.Attributes, Original: w.OriginalSpan, Editable: w.Editable}
		switch w.Kind {
		case KindHeading:
			if !isHeading(sp.Tag) {
				level := w.Level
				if level < 1 || level > 6 {
					level = 1
				}
				sp.Tag = fmt.Sprintf("h%d", level)
			}
			out = append(out, &Heading{Span: sp, Level: int(sp.Tag[len(sp.Tag)-1] - '0'), Text: w.Text})
		case KindParagraph:
			sp.Tag = "p"
			out = append(out, &Paragraph{Span: sp, Text: w.Text})
		case KindImage:
			sp.Tag = "img"
			out = append(out, &Image{Span: sp, Src: w.Src, Alt: w.Alt})
		case KindLink:
			sp.Tag = "a"
			out = append(out, &Link{Span: sp, Href: w.Href, Text: w.Text})
		default:
			return nil, fmt.Errorf("block %d: %w: %q", i, ErrUnknownKind, w.Kind)
		}
	}
	return out, nil
}
