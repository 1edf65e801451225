package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fragment is a parsed body-level markup fragment.
type Fragment struct {
	root *html.Node
	doc  *goquery.Document
}

// ParseFragment parses markup as the content of a body element.
func ParseFragment(markup string) (*Fragment, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Fragment{root: root, doc: goquery.NewDocumentFromNode(root)}, nil
}

// Selection returns the fragment root for goquery traversal.
func (f *Fragment) Selection() *goquery.Selection { return f.doc.Selection }

// Render serializes the fragment's content.
func (f *Fragment) Render() (string, error) {
	return renderChildren(f.root)
}

func renderChildren(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("rendering fragment: %w", err)
		}
	}
	return b.String(), nil
}

func renderNode(n *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", fmt.Errorf("rendering %s: %w", n.Data, err)
	}
	return b.String(), nil
}

// Prepare builds the projected form of a region: include placeholders are
// filled from includes and scripts are replaced by inert comments.
func Prepare(region string, includes map[string]string) (string, error) {
	f, err := ParseFragment(region)
	if err != nil {
		return "", err
	}
	SubstituteIncludes(f.Selection(), includes)
	if err := NeutralizeScripts(f.Selection()); err != nil {
		return "", err
	}
	return f.Render()
}

// Decorate marks the editable nodes of a projected fragment.
func Decorate(projected string) (string, int, error) {
	f, err := ParseFragment(projected)
	if err != nil {
		return "", 0, err
	}
	n := DecorateSelection(f.Selection())
	out, err := f.Render()
	return out, n, err
}

// Strip removes editing decorations but keeps include and script markers.
func Strip(markup string) (string, error) {
	f, err := ParseFragment(markup)
	if err != nil {
		return "", err
	}
	StripSelection(f.Selection())
	return f.Render()
}

// Restore puts include placeholders and scripts back.
func Restore(projected string) (string, error) {
	f, err := ParseFragment(projected)
	if err != nil {
		return "", err
	}
	if err := RestoreSelection(f.Selection()); err != nil {
		return "", err
	}
	return f.Render()
}

// Normalize turns markup produced by an editing view back into document
// markup: decorations and artifacts are removed, include placeholders and
// scripts are restored.
func Normalize(markup string) (string, error) {
	f, err := ParseFragment(markup)
	if err != nil {
		return "", err
	}
	StripSelection(f.Selection())
	if err := RestoreSelection(f.Selection()); err != nil {
		return "", err
	}
	return f.Render()
}

// RestoreSelection restores include placeholders, then scripts.
func RestoreSelection(sel *goquery.Selection) error {
	RestoreIncludes(sel)
	return RestoreScripts(sel)
}
