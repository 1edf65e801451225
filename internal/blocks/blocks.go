// Package blocks extracts structured content blocks from page markup and
// writes edited blocks back by literal span replacement.
package blocks

import (
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Kind names a block variant.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindImage     Kind = "image"
	KindLink      Kind = "link"
)

// Span is the part every block shares: the element it came from and the
// verbatim markup it was matched against.
type Span struct {
	Tag string
	// Attributes of the opening tag. A nil map keeps the original
	// attributes when the block is serialized.
	Attributes map[string]string
	// Original is the exact substring of the source text. It goes stale as
	// soon as the surrounding markup changes; extract again after a flush.
	Original string
	Editable bool
}

// Block is one of *Heading, *Paragraph, *Image or *Link.
type Block interface {
	Kind() Kind
	// DisplayText is the plain text shown to the operator.
	DisplayText() string
	span() *Span
}

// Heading is an h1-h6 element.
type Heading struct {
	Span
	Level int
	Text  string
}

// Paragraph is a p element.
type Paragraph struct {
	Span
	Text string
}

// Image is an img element.
type Image struct {
	Span
	Src string
	Alt string
}

// Link is an a element.
type Link struct {
	Span
	Href string
	Text string
}

func (*Heading) Kind() Kind   { return KindHeading }
func (*Paragraph) Kind() Kind { return KindParagraph }
func (*Image) Kind() Kind     { return KindImage }
func (*Link) Kind() Kind      { return KindLink }

func (h *Heading) DisplayText() string   { return h.Text }
func (p *Paragraph) DisplayText() string { return p.Text }
func (i *Image) DisplayText() string     { return i.Alt }
func (l *Link) DisplayText() string      { return l.Text }

func (h *Heading) span() *Span   { return &h.Span }
func (p *Paragraph) span() *Span { return &p.Span }
func (i *Image) span() *Span     { return &i.Span }
func (l *Link) span() *Span      { return &l.Span }

// OriginalSpan returns the verbatim markup b was extracted from.
func OriginalSpan(b Block) string { return b.span().Original }

// IsEditable reports whether b may be edited as plain text.
func IsEditable(b Block) bool { return b.span().Editable }

var strict = bluemonday.StrictPolicy()

// plainText strips all markup from an HTML fragment and collapses whitespace.
func plainText(fragment string) string {
	return strings.Join(strings.Fields(html.UnescapeString(strict.Sanitize(fragment))), " ")
}

// chromeTags hold site navigation; blocks inside them are read-only.
var chromeTags = map[string]bool{"header": true, "footer": true, "nav": true}

// closesParagraph lists tags whose start or end implicitly ends an open p.
var closesParagraph = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"details": true, "div": true, "dl": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "menu": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "ul": true, "body": true,
}

type capture struct {
	tag       string
	start     int
	innerFrom int
	attrs     map[string]string
	chrome    bool
}

type found struct {
	start int
	block Block
}

// Extract returns the heading, paragraph, image and link blocks of src in
// document order.
func Extract(src string) []Block {
	z := html.NewTokenizer(strings.NewReader(src))

	var (
		out    []found
		open   []*capture
		chrome int
		pos    int
	)

	finish := func(c *capture, innerTo, end int) {
		b := newBlock(c, src[c.start:end], src[c.innerFrom:innerTo])
		if b != nil {
			out = append(out, found{start: c.start, block: b})
		}
	}
	closeOpen := func(tag string, innerTo, end int) bool {
		for i := len(open) - 1; i >= 0; i-- {
			if open[i].tag == tag {
				finish(open[i], innerTo, end)
				open = append(open[:i], open[i+1:]...)
				return true
			}
		}
		return false
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := len(z.Raw())
		start, end := pos, pos+raw
		pos = end

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if tt == html.StartTagToken && closesParagraph[tag] {
				closeOpen("p", start, start)
			}
			attrs := readAttrs(z, hasAttr)
			switch {
			case tag == "img":
				c := &capture{tag: tag, start: start, innerFrom: end, attrs: attrs, chrome: chrome > 0}
				finish(c, end, end)
			case tt == html.StartTagToken && (isHeading(tag) || tag == "p" || tag == "a"):
				open = append(open, &capture{tag: tag, start: start, innerFrom: end, attrs: attrs, chrome: chrome > 0})
			}
			if tt == html.StartTagToken && chromeTags[tag] {
				chrome++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if isHeading(tag) || tag == "p" || tag == "a" {
				closeOpen(tag, start, end)
			} else if closesParagraph[tag] {
				closeOpen("p", start, start)
			}
			if chromeTags[tag] && chrome > 0 {
				chrome--
			}
		}
	}
	// An unterminated paragraph runs to the end of the input.
	closeOpen("p", len(src), len(src))

	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	blocks := make([]Block, len(out))
	for i, f := range out {
		blocks[i] = f.block
	}
	return blocks
}

func readAttrs(z *html.Tokenizer, hasAttr bool) map[string]string {
	if !hasAttr {
		return nil
	}
	attrs := make(map[string]string)
	for {
		k, v, more := z.TagAttr()
		attrs[string(k)] = string(v)
		if !more {
			return attrs
		}
	}
}

func isHeading(tag string) bool {
	return len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6'
}

func newBlock(c *capture, original, inner string) Block {
	sp := Span{Tag: c.tag, Attributes: c.attrs, Original: original}
	sp.Editable = !c.chrome && !holdsMarkup(c.tag, inner)
	switch {
	case isHeading(c.tag):
		return &Heading{Span: sp, Level: int(c.tag[1] - '0'), Text: plainText(inner)}
	case c.tag == "p":
		return &Paragraph{Span: sp, Text: plainText(inner)}
	case c.tag == "img":
		return &Image{Span: sp, Src: c.attrs["src"], Alt: c.attrs["alt"]}
	case c.tag == "a":
		return &Link{Span: sp, Href: c.attrs["href"], Text: plainText(inner)}
	}
	return nil
}

// holdsMarkup reports whether inner has child elements that editing a tag
// element as plain text would destroy.
func holdsMarkup(tag, inner string) bool {
	lower := strings.ToLower(inner)
	switch {
	case isHeading(tag), tag == "p":
		return containsTag(lower, "a") || containsTag(lower, "img")
	case tag == "a":
		return containsTag(lower, "img")
	}
	return false
}

// containsTag reports whether the lowercased fragment opens a name element.
func containsTag(fragment, name string) bool {
	open := "<" + name
	for i := strings.Index(fragment, open); i >= 0; {
		next := i + len(open)
		if next >= len(fragment) {
			return false
		}
		switch fragment[next] {
		case ' ', '>', '/', '\t', '\n', '\r', '\f':
			return true
		}
		j := strings.Index(fragment[next:], open)
		if j < 0 {
			return false
		}
		i = next + j
	}
	return false
}
