package markup

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Attributes and markers the editor adds to markup. Everything carrying one
// of them is removed or reverted before markup reaches the document.
const (
	AttrEdit        = "data-pe-edit"
	AttrOrigStyle   = "data-pe-orig-style"
	AttrOrigTitle   = "data-pe-orig-title"
	AttrArtifact    = "data-pe-artifact"
	AttrIncludeOrig = "data-pe-include-orig"
	AttrInclude     = "data-include"

	scriptPrefix = "pe-script:"
)

const (
	editStyle = "outline: 1px dashed rgba(37, 99, 235, 0.6); outline-offset: 2px; cursor: text;"
	editTitle = "Click to edit"
)

const (
	editableSelector = "h1, h2, h3, h4, h5, h6, p, span"
	// Chrome regions, include slots, interactive controls and media.
	inertSelector = "header, footer, nav, [" + AttrInclude + "], button, a, label, input, select, textarea, form, img, video, audio, iframe, picture, svg"
)

var enc = base64.StdEncoding

// IsEditable reports whether the node may be edited in place: a heading,
// paragraph or text span outside chrome regions and interactive controls.
func IsEditable(s *goquery.Selection) bool {
	if !s.Is(editableSelector) {
		return false
	}
	if goquery.NodeName(s) == "span" && isIcon(s) {
		return false
	}
	return s.Closest(inertSelector).Length() == 0
}

func isIcon(s *goquery.Selection) bool {
	if strings.TrimSpace(s.Text()) == "" {
		return true
	}
	class, _ := s.Attr("class")
	class = strings.ToLower(class)
	if strings.Contains(class, "fa-") || strings.Contains(class, "icon") {
		return true
	}
	for _, c := range strings.Fields(class) {
		switch c {
		case "fa", "fas", "far", "fab", "fal":
			return true
		}
	}
	return false
}

// DecorateSelection marks every editable node under sel as contenteditable
// with edit-mode styling and a tooltip. Nodes inside an already decorated
// node are left alone. It returns the number of decorated nodes.
func DecorateSelection(sel *goquery.Selection) int {
	n := 0
	sel.Find(editableSelector).Each(func(_ int, s *goquery.Selection) {
		if !IsEditable(s) || s.ParentsFiltered("["+AttrEdit+"]").Length() > 0 {
			return
		}
		style, hasStyle := s.Attr("style")
		if hasStyle {
			s.SetAttr(AttrOrigStyle, style)
			style = strings.TrimRight(strings.TrimSpace(style), ";") + "; " + editStyle
		} else {
			style = editStyle
		}
		if title, ok := s.Attr("title"); ok {
			s.SetAttr(AttrOrigTitle, title)
		}
		s.SetAttr("style", style)
		s.SetAttr("title", editTitle)
		s.SetAttr("contenteditable", "true")
		s.SetAttr(AttrEdit, "")
		n++
	})
	return n
}

// StripSelection removes artifact nodes and reverts decorated nodes.
func StripSelection(sel *goquery.Selection) {
	sel.Find("[" + AttrArtifact + "]").Remove()
	sel.Find("[" + AttrEdit + "]").Each(func(_ int, s *goquery.Selection) {
		if style, ok := s.Attr(AttrOrigStyle); ok {
			s.SetAttr("style", style)
		} else {
			s.RemoveAttr("style")
		}
		if title, ok := s.Attr(AttrOrigTitle); ok {
			s.SetAttr("title", title)
		} else {
			s.RemoveAttr("title")
		}
		s.RemoveAttr("contenteditable")
		s.RemoveAttr(AttrOrigStyle)
		s.RemoveAttr(AttrOrigTitle)
		s.RemoveAttr(AttrEdit)
	})
}

// MarkIncludes records the current content of every include placeholder so
// RestoreIncludes can put it back after the content was filled in.
func MarkIncludes(sel *goquery.Selection) {
	sel.Find("[" + AttrInclude + "]").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr(AttrIncludeOrig); ok {
			return
		}
		orig, _ := s.Html()
		s.SetAttr(AttrIncludeOrig, enc.EncodeToString([]byte(orig)))
	})
}

// SubstituteIncludes fills include placeholders with fragment content keyed
// by the placeholder's data-include value. Placeholders without a fragment
// are left as they are.
func SubstituteIncludes(sel *goquery.Selection, includes map[string]string) {
	if len(includes) == 0 {
		return
	}
	sel.Find("["+AttrInclude+"]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr(AttrInclude)
		frag := includes[name]
		if strings.TrimSpace(frag) == "" {
			return
		}
		if _, ok := s.Attr(AttrIncludeOrig); !ok {
			orig, _ := s.Html()
			s.SetAttr(AttrIncludeOrig, enc.EncodeToString([]byte(orig)))
		}
		s.SetHtml(frag)
	})
}

// RestoreIncludes puts the recorded placeholder content back.
func RestoreIncludes(sel *goquery.Selection) {
	sel.Find("[" + AttrIncludeOrig + "]").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr(AttrIncludeOrig)
		s.RemoveAttr(AttrIncludeOrig)
		orig, err := enc.DecodeString(v)
		if err != nil {
			return
		}
		s.SetHtml(string(orig))
	})
}

// NeutralizeScripts replaces every script element with a comment carrying
// its encoded markup.
func NeutralizeScripts(sel *goquery.Selection) error {
	var err error
	sel.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n := s.Get(0)
		var raw string
		if raw, err = renderNode(n); err != nil {
			return false
		}
		c := &html.Node{Type: html.CommentNode, Data: scriptPrefix + enc.EncodeToString([]byte(raw))}
		n.Parent.InsertBefore(c, n)
		n.Parent.RemoveChild(n)
		return true
	})
	return err
}

// RestoreScripts turns script comments back into script elements.
func RestoreScripts(sel *goquery.Selection) error {
	var comments []*html.Node
	for _, root := range sel.Nodes {
		collectComments(root, &comments)
	}
	for _, c := range comments {
		raw, err := enc.DecodeString(strings.TrimPrefix(c.Data, scriptPrefix))
		if err != nil {
			continue
		}
		nodes, err := html.ParseFragment(strings.NewReader(string(raw)), c.Parent)
		if err != nil {
			return fmt.Errorf("restoring script: %w", err)
		}
		for _, n := range nodes {
			c.Parent.InsertBefore(n, c)
		}
		c.Parent.RemoveChild(c)
	}
	return nil
}

func collectComments(n *html.Node, out *[]*html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.CommentNode && strings.HasPrefix(c.Data, scriptPrefix) {
			*out = append(*out, c)
			continue
		}
		collectComments(c, out)
	}
}
