// Package stylescope rewrites stylesheets so their rules only apply inside a
// container element. Imported site CSS can then be shown next to the editor
// chrome without restyling it.
package stylescope

import (
	"strings"
	"sync"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Resource is a stylesheet together with its scoped form.
type Resource struct {
	Path       string `json:"path"`
	RawText    string `json:"-"`
	ScopedText string `json:"scoped_text"`
}

type cacheKey struct {
	path      string
	container string
}

// Scoper scopes stylesheets and caches the result per path and container.
type Scoper struct {
	log *zap.Logger

	mu    sync.Mutex
	cache map[cacheKey]Resource
}

// New creates a Scoper.
func New(log *zap.Logger) *Scoper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scoper{
		log:   log.Named("stylescope"),
		cache: make(map[cacheKey]Resource),
	}
}

// Scope is a convenience wrapper around a throwaway Scoper.
func Scope(cssText, container string) string {
	return New(nil).Scope(cssText, container)
}

// Resource returns the scoped form of the stylesheet at path, reusing the
// cached result while the raw text is unchanged.
func (s *Scoper) Resource(path, raw, container string) Resource {
	key := cacheKey{path: path, container: container}

	s.mu.Lock()
	if r, ok := s.cache[key]; ok && r.RawText == raw {
		s.mu.Unlock()
		return r
	}
	s.mu.Unlock()

	r := Resource{Path: path, RawText: raw, ScopedText: s.Scope(raw, container)}

	s.mu.Lock()
	s.cache[key] = r
	s.mu.Unlock()
	return r
}

// Scope prefixes every style rule selector in cssText with container.
// Selectors on html, body and :root are rewritten to the container itself.
// Comments and at-rule statements pass through; style rules nested in
// conditional group rules are scoped as well. Malformed rules are copied
// unchanged.
func (s *Scoper) Scope(cssText, container string) string {
	container = strings.TrimSpace(container)
	if container == "" || strings.TrimSpace(cssText) == "" {
		return cssText
	}
	toks := lex(cssText)
	var b strings.Builder
	b.Grow(len(cssText) + len(cssText)/4)
	s.scopeRules(&b, toks, container)
	return b.String()
}

type token struct {
	tt   css.TokenType
	data string
}

func lex(src string) []token {
	l := css.NewLexer(parse.NewInputString(src))
	var toks []token
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			return toks
		}
		toks = append(toks, token{tt: tt, data: string(data)})
	}
}

func join(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.data)
	}
	return b.String()
}

// conditionalGroups are at-rules whose block holds ordinary style rules.
var conditionalGroups = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@container": true,
	"@layer":     true,
	"@document":  true,
	"@scope":     true,
}

func (s *Scoper) scopeRules(b *strings.Builder, toks []token, container string) {
	i := 0
	for i < len(toks) {
		t := toks[i]
		switch t.tt {
		case css.WhitespaceToken, css.CommentToken, css.CDOToken, css.CDCToken, css.RightBraceToken, css.SemicolonToken:
			b.WriteString(t.data)
			i++
		case css.AtKeywordToken:
			i = s.atRule(b, toks, i, container)
		default:
			i = s.styleRule(b, toks, i, container)
		}
	}
}

// atRule copies an at-rule starting at toks[i] and returns the index after it.
func (s *Scoper) atRule(b *strings.Builder, toks []token, i int, container string) int {
	name := strings.ToLower(toks[i].data)
	open, end := blockBounds(toks, i)
	switch {
	case open < 0:
		// Statement at-rule (@import, @charset) or unterminated input.
		b.WriteString(join(toks[i:end]))
	case end < 0:
		s.log.Debug("Unterminated at-rule copied unscoped", zap.String("rule", name))
		b.WriteString(join(toks[i:]))
		return len(toks)
	case conditionalGroups[name]:
		b.WriteString(join(toks[i : open+1]))
		s.scopeRules(b, toks[open+1:end-1], container)
		b.WriteString(toks[end-1].data)
	default:
		b.WriteString(join(toks[i:end]))
	}
	return end
}

// styleRule scopes a qualified rule starting at toks[i] and returns the index
// after it.
func (s *Scoper) styleRule(b *strings.Builder, toks []token, i int, container string) int {
	open, end := blockBounds(toks, i)
	switch {
	case open < 0:
		// No block before ';' or EOF: not a style rule.
		s.log.Debug("Malformed rule copied unscoped", zap.String("text", join(toks[i:end])))
		b.WriteString(join(toks[i:end]))
		return end
	case end < 0:
		s.log.Debug("Unterminated rule copied unscoped", zap.String("prelude", join(toks[i:open])))
		b.WriteString(join(toks[i:]))
		return len(toks)
	}

	prelude, ok := scopeSelectorList(toks[i:open], container)
	if !ok {
		s.log.Debug("Unparseable selector copied unscoped", zap.String("prelude", join(toks[i:open])))
		prelude = join(toks[i:open])
	}
	b.WriteString(prelude)
	b.WriteString(join(toks[open:end]))
	return end
}

// blockBounds finds the block of the rule starting at toks[i]. open is the
// index of its '{' or -1 when the rule ends at a top-level ';' or at EOF; end
// is the index just past the matching '}' (or past the ';'), -1 when the
// block is never closed.
func blockBounds(toks []token, i int) (open, end int) {
	parens := 0
	for j := i; j < len(toks); j++ {
		switch toks[j].tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			parens++
		case css.RightParenthesisToken, css.RightBracketToken:
			if parens > 0 {
				parens--
			}
		case css.SemicolonToken:
			if parens == 0 {
				return -1, j + 1
			}
		case css.LeftBraceToken:
			if parens > 0 {
				continue
			}
			depth := 0
			for k := j; k < len(toks); k++ {
				switch toks[k].tt {
				case css.LeftBraceToken:
					depth++
				case css.RightBraceToken:
					depth--
					if depth == 0 {
						return j, k + 1
					}
				}
			}
			return j, -1
		case css.RightBraceToken:
			if parens == 0 {
				// Stray closing brace ends the junk before it.
				return -1, j
			}
		}
	}
	return -1, len(toks)
}

// scopeSelectorList rewrites a comma separated selector list, keeping the
// whitespace around it.
func scopeSelectorList(toks []token, container string) (string, bool) {
	raw := join(toks)
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw, false
	}
	lead := raw[:strings.Index(raw, trimmed)]
	trail := raw[len(lead)+len(trimmed):]

	var parts []string
	depth := 0
	start := 0
	for j, t := range toks {
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.CommaToken:
			if depth == 0 {
				parts = append(parts, join(toks[start:j]))
				start = j + 1
			}
		}
	}
	parts = append(parts, join(toks[start:]))

	seen := make(map[string]bool, len(parts))
	scoped := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return raw, false
		}
		sel := scopeSelector(p, container)
		if seen[sel] {
			continue
		}
		seen[sel] = true
		scoped = append(scoped, sel)
	}
	return lead + strings.Join(scoped, ", ") + trail, true
}

func scopeSelector(sel, container string) string {
	if alreadyScoped(sel, container) {
		return sel
	}
	first, rest := splitFirstCompound(sel)
	typ, suffix, ok := rootCompound(first)
	if !ok {
		return container + " " + sel
	}

	scoped := container + suffix
	if typ != "body" {
		// "html body", "html > body" and ":root body" all mean the canvas.
		r := strings.TrimLeft(rest, " \t\r\n\f")
		if strings.HasPrefix(r, ">") {
			r = strings.TrimLeft(r[1:], " \t\r\n\f")
		}
		if r != "" {
			next, rest2 := splitFirstCompound(r)
			if t2, s2, ok2 := rootCompound(next); ok2 && t2 == "body" {
				scoped += s2
				rest = rest2
			}
		}
	}
	return scoped + rest
}

// alreadyScoped reports whether sel only matches the container or elements
// inside it: its first compound is the container, possibly narrowed, and
// what follows is a descendant or child combinator.
func alreadyScoped(sel, container string) bool {
	first, rest := splitFirstCompound(sel)
	if !strings.HasPrefix(first, container) {
		return false
	}
	if len(first) > len(container) {
		switch first[len(container)] {
		case '.', '#', '[', ':':
		default:
			return false
		}
	}
	rest = strings.TrimLeft(rest, " \t\n\r\f")
	return !strings.HasPrefix(rest, "+") && !strings.HasPrefix(rest, "~")
}

// splitFirstCompound splits sel after its first compound selector.
func splitFirstCompound(sel string) (first, rest string) {
	depth := 0
	var quote byte
	for i := 0; i < len(sel); i++ {
		c := sel[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '\\':
			i++
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '>' || c == '+' || c == '~'):
			return sel[:i], sel[i:]
		}
	}
	return sel, ""
}

// rootCompound reports whether compound selects the document root or body,
// returning the matched type and the remaining simple selectors.
func rootCompound(compound string) (typ, suffix string, ok bool) {
	lower := strings.ToLower(compound)
	for _, name := range []string{"html", "body", ":root"} {
		if !strings.HasPrefix(lower, name) {
			continue
		}
		if len(lower) == len(name) {
			return name, "", true
		}
		switch lower[len(name)] {
		case '.', '#', '[', ':':
			return name, compound[len(name):], true
		}
	}
	return "", "", false
}
