package blocks

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Serialize renders b as markup. A block whose text and attributes still
// match its original span serializes to exactly that span.
func Serialize(b Block) string {
	switch v := b.(type) {
	case *Heading:
		return serializeElement(&v.Span, v.Text, nil)
	case *Paragraph:
		return serializeElement(&v.Span, v.Text, nil)
	case *Link:
		return serializeElement(&v.Span, v.Text, map[string]string{"href": v.Href})
	case *Image:
		return serializeVoid(&v.Span, map[string]string{"src": v.Src, "alt": v.Alt})
	}
	return ""
}

// Apply replaces every block's original span in src with its serialized
// form, in slice order. Spans are located by literal search at apply time:
// first after the previous replacement, then anywhere in the text. Blocks
// whose span can no longer be found are returned as skipped. Blocks that are
// not editable are left as they are, whatever their fields hold.
func Apply(blocks []Block, src string) (string, []Block) {
	out := src
	cursor := 0
	var skipped []Block
	for _, b := range blocks {
		if !editable(b.span()) {
			continue
		}
		orig := b.span().Original
		if orig == "" {
			skipped = append(skipped, b)
			continue
		}
		pos := -1
		if cursor <= len(out) {
			if i := strings.Index(out[cursor:], orig); i >= 0 {
				pos = cursor + i
			}
		}
		if pos < 0 {
			pos = strings.Index(out, orig)
		}
		if pos < 0 {
			skipped = append(skipped, b)
			continue
		}

		repl := Serialize(b)
		if repl == orig {
			// Nested blocks start inside this one.
			cursor = pos + 1
			continue
		}
		out = out[:pos] + repl + out[pos+len(orig):]
		cursor = pos + len(repl)
	}
	return out, skipped
}

// editable checks the span itself as well as its flag, which may have
// come from a client.
func editable(sp *Span) bool {
	if !sp.Editable {
		return false
	}
	_, rest := parseOpen(sp.Original)
	inner, _ := splitClose(rest, sp.Tag)
	return !holdsMarkup(sp.Tag, inner)
}

type openTag struct {
	raw   string
	order []string
	attrs map[string]string
}

// parseOpen splits the opening tag off an original span.
func parseOpen(original string) (openTag, string) {
	z := html.NewTokenizer(strings.NewReader(original))
	tt := z.Next()
	if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
		return openTag{}, original
	}
	raw := string(z.Raw())
	_, hasAttr := z.TagName()
	ot := openTag{raw: raw, attrs: make(map[string]string)}
	for hasAttr {
		k, v, more := z.TagAttr()
		key := string(k)
		if _, dup := ot.attrs[key]; !dup {
			ot.order = append(ot.order, key)
		}
		ot.attrs[key] = string(v)
		hasAttr = more
	}
	return ot, original[len(raw):]
}

func splitClose(rest, tag string) (inner, closing string) {
	end := "</" + tag + ">"
	if len(rest) >= len(end) && strings.EqualFold(rest[len(rest)-len(end):], end) {
		return rest[:len(rest)-len(end)], rest[len(rest)-len(end):]
	}
	return rest, ""
}

func wantAttrs(sp *Span, ot openTag, overrides map[string]string) map[string]string {
	base := sp.Attributes
	if base == nil {
		base = ot.attrs
	}
	want := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		want[k] = v
	}
	for k, v := range overrides {
		if _, ok := want[k]; !ok && v == "" {
			continue
		}
		want[k] = v
	}
	return want
}

func serializeElement(sp *Span, text string, overrides map[string]string) string {
	ot, rest := parseOpen(sp.Original)
	inner, closing := splitClose(rest, sp.Tag)
	if ot.raw == "" {
		closing = "</" + sp.Tag + ">"
	}

	want := wantAttrs(sp, ot, overrides)
	open := ot.raw
	if open == "" || !sameAttrs(want, ot.attrs) {
		open = buildOpen(sp.Tag, ot.order, want, false)
	}
	body := inner
	if ot.raw == "" || text != plainText(inner) {
		body = html.EscapeString(text)
	}
	return open + body + closing
}

func serializeVoid(sp *Span, overrides map[string]string) string {
	ot, _ := parseOpen(sp.Original)
	want := wantAttrs(sp, ot, overrides)
	if ot.raw != "" && sameAttrs(want, ot.attrs) {
		return ot.raw
	}
	return buildOpen(sp.Tag, ot.order, want, strings.HasSuffix(ot.raw, "/>"))
}

func sameAttrs(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// buildOpen writes an opening tag keeping the original attribute order and
// appending new attributes sorted by name.
func buildOpen(tag string, order []string, attrs map[string]string, selfClose bool) string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(tag)
	seen := make(map[string]bool, len(attrs))
	write := func(k string) {
		seen[k] = true
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(attrs[k]))
		b.WriteString(`"`)
	}
	for _, k := range order {
		if _, ok := attrs[k]; ok {
			write(k)
		}
	}
	var extra []string
	for k := range attrs {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		write(k)
	}
	if selfClose {
		b.WriteString(" /")
	}
	b.WriteString(">")
	return b.String()
}
