// Package markup locates the editable region of a page and manages the
// editor-only artifacts added to markup while it is being edited.
package markup

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrRegionNotFound is returned when a document has no main-content element,
// no main element and no body.
var ErrRegionNotFound = errors.New("body/main region not found")

// MainContentID is the id of the preferred region container.
const MainContentID = "main-content"

// Marker identifies which structural marker delimited a region.
type Marker int

const (
	MarkerMainContent Marker = iota + 1
	MarkerMain
	MarkerBody
)

func (m Marker) String() string {
	switch m {
	case MarkerMainContent:
		return "#" + MainContentID
	case MarkerMain:
		return "main"
	case MarkerBody:
		return "body"
	}
	return "none"
}

// Region is the byte range of the editable region's inner markup.
type Region struct {
	Start  int
	End    int
	Marker Marker
}

// Inner returns the region's inner markup in text.
func (r Region) Inner(text string) string { return text[r.Start:r.End] }

// Replace returns text with the region's inner markup replaced by inner.
func (r Region) Replace(text, inner string) string {
	return text[:r.Start] + inner + text[r.End:]
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Locate finds the editable region of text: the element with id
// main-content, else the first main element, else the body.
func Locate(text string) (Region, error) {
	if r, ok := findElement(text, func(_ string, id string) bool { return id == MainContentID }); ok {
		r.Marker = MarkerMainContent
		return r, nil
	}
	if r, ok := findElement(text, func(tag, _ string) bool { return tag == "main" }); ok {
		r.Marker = MarkerMain
		return r, nil
	}
	if r, ok := findElement(text, func(tag, _ string) bool { return tag == "body" }); ok {
		r.Marker = MarkerBody
		return r, nil
	}
	return Region{}, ErrRegionNotFound
}

// findElement scans text for the first start tag accepted by match and
// returns the bounds of its content. An unclosed body runs to </html> or the
// end of the text; other unclosed elements do not match.
func findElement(text string, match func(tag, id string) bool) (Region, bool) {
	z := html.NewTokenizer(strings.NewReader(text))
	pos := 0
	tag := ""
	depth := 0
	start := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := len(z.Raw())
		tokStart, tokEnd := pos, pos+raw
		pos = tokEnd

		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			n := string(name)
			if depth > 0 {
				if n == tag {
					depth++
				}
				continue
			}
			if voidElements[n] {
				continue
			}
			id := ""
			for hasAttr {
				k, v, more := z.TagAttr()
				if string(k) == "id" {
					id = string(v)
				}
				hasAttr = more
			}
			if match(n, id) {
				tag, depth, start = n, 1, tokEnd
			}
		case html.EndTagToken:
			if depth == 0 {
				continue
			}
			name, _ := z.TagName()
			if string(name) != tag {
				continue
			}
			depth--
			if depth == 0 {
				return Region{Start: start, End: tokStart}, true
			}
		}
	}
	if depth > 0 && tag == "body" {
		end := len(text)
		if i := strings.LastIndex(strings.ToLower(text), "</html"); i >= start {
			end = i
		}
		return Region{Start: start, End: end}, true
	}
	return Region{}, false
}

// RegionSelection selects the editable region of a parsed document using the
// same marker order as Locate.
func RegionSelection(doc *goquery.Document) *goquery.Selection {
	if s := doc.Find("#" + MainContentID).First(); s.Length() > 0 {
		return s
	}
	if s := doc.Find("main").First(); s.Length() > 0 {
		return s
	}
	return doc.Find("body").First()
}
