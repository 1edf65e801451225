package stylescope

import (
	"strings"
	"testing"
)

func TestScope(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"class rule", ".card{color:red}", ".preview .card{color:red}"},
		{"body becomes container", "body{margin:0}", ".preview{margin:0}"},
		{"html becomes container", "html { font-size: 16px }", ".preview { font-size: 16px }"},
		{"root variables", ":root{--brand:#0a6}", ".preview{--brand:#0a6}"},
		{"html body collapses", "html body{padding:0}", ".preview{padding:0}"},
		{"body with class", "body.dark p{color:#fff}", ".preview.dark p{color:#fff}"},
		{"selector list", "h1, h2 , .title{margin:0}", ".preview h1, .preview h2, .preview .title{margin:0}"},
		{"duplicate after rewrite", "html, body{height:100%}", ".preview{height:100%}"},
		{"descendant keeps rest", "body > main .hero{x:y}", ".preview > main .hero{x:y}"},
		{"prefix lookalike", ".preview-card{a:b}", ".preview .preview-card{a:b}"},
		{"attribute with comma", `a[title="a, b"]{c:d}`, `.preview a[title="a, b"]{c:d}`},
		{"pseudo with list", ":is(h1, h2) span{c:d}", ".preview :is(h1, h2) span{c:d}"},
		{"bodyish tag is not body", "bodyx{c:d}", ".preview bodyx{c:d}"},
		{"scoped descendant kept", ".preview .x{c:d}", ".preview .x{c:d}"},
		{"scoped child kept", ".preview > .x{c:d}", ".preview > .x{c:d}"},
		{"container state kept", ".preview:hover a{c:d}", ".preview:hover a{c:d}"},
		{"adjacent sibling rescoped", ".preview + .x{color:red}", ".preview .preview + .x{color:red}"},
		{"general sibling rescoped", ".preview ~ p{color:red}", ".preview .preview ~ p{color:red}"},
		{"narrowed sibling rescoped", ".preview.dark~p{c:d}", ".preview .preview.dark~p{c:d}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scope(tt.in, ".preview")
			if got != tt.want {
				t.Errorf("Scope(%q)\n got: %q\nwant: %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestScopeIsIdempotent(t *testing.T) {
	inputs := []string{
		".card{color:red}",
		"body{margin:0} h1,h2{font-weight:700}",
		"@media (max-width: 600px) { .nav { display: none } body { font-size: 14px } }",
		"/* c */ .a:hover > .b + .c ~ .d{x:y}",
	}
	for _, in := range inputs {
		once := Scope(in, ".preview")
		twice := Scope(once, ".preview")
		if once != twice {
			t.Errorf("not idempotent for %q\nonce:  %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestScopeNestedGroups(t *testing.T) {
	in := "@media (max-width: 600px) {\n  .nav { display: none }\n  body { font-size: 14px }\n}"
	want := "@media (max-width: 600px) {\n  .preview .nav { display: none }\n  .preview { font-size: 14px }\n}"
	if got := Scope(in, ".preview"); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	in = "@supports (display:grid){@media screen{.grid{display:grid}}}"
	want = "@supports (display:grid){@media screen{.preview .grid{display:grid}}}"
	if got := Scope(in, ".preview"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScopeLeavesOtherAtRules(t *testing.T) {
	in := `@import url("base.css");
@charset "utf-8";
@font-face{font-family:Brand;src:url(brand.woff2)}
@keyframes pulse{from{opacity:0}to{opacity:1}}
.x{y:z}`
	got := Scope(in, ".preview")

	for _, keep := range []string{
		`@import url("base.css");`,
		`@charset "utf-8";`,
		`@font-face{font-family:Brand;src:url(brand.woff2)}`,
		`@keyframes pulse{from{opacity:0}to{opacity:1}}`,
	} {
		if !strings.Contains(got, keep) {
			t.Errorf("expected %q to pass through, got:\n%s", keep, got)
		}
	}
	if !strings.HasSuffix(got, ".preview .x{y:z}") {
		t.Errorf("expected trailing rule to be scoped, got:\n%s", got)
	}
}

func TestScopeCommentsPassThrough(t *testing.T) {
	in := "/* header styles */\n.site-header{color:#333}\n/* end */"
	want := "/* header styles */\n.preview .site-header{color:#333}\n/* end */"
	if got := Scope(in, ".preview"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScopeMalformedPassThrough(t *testing.T) {
	tests := []string{
		".broken{color:red",
		"garbage;",
		"}",
		", {color:red}",
	}
	for _, in := range tests {
		if got := Scope(in, ".preview"); got != in {
			t.Errorf("Scope(%q) = %q, expected unchanged", in, got)
		}
	}

	in := ".a{b:c} , {x:y} .d{e:f}"
	got := Scope(in, ".preview")
	if !strings.HasPrefix(got, ".preview .a{b:c}") || !strings.HasSuffix(got, ".preview .d{e:f}") {
		t.Errorf("valid rules around a malformed one should still be scoped, got %q", got)
	}
}

func TestScopeEmptyInputs(t *testing.T) {
	if got := Scope("", ".preview"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := Scope(".a{b:c}", "  "); got != ".a{b:c}" {
		t.Errorf("empty container should leave css unchanged, got %q", got)
	}
}

func TestResourceCache(t *testing.T) {
	s := New(nil)
	r1 := s.Resource("css/site.css", ".a{b:c}", ".pe-surface")
	if r1.ScopedText != ".pe-surface .a{b:c}" {
		t.Fatalf("unexpected scoped text %q", r1.ScopedText)
	}
	r2 := s.Resource("css/site.css", ".a{b:c}", ".pe-surface")
	if r2 != r1 {
		t.Errorf("expected cached resource, got %+v", r2)
	}
	r3 := s.Resource("css/site.css", ".z{b:c}", ".pe-surface")
	if r3.ScopedText != ".pe-surface .z{b:c}" {
		t.Errorf("changed raw text should rescope, got %q", r3.ScopedText)
	}
	r4 := s.Resource("css/site.css", ".z{b:c}", "#frame")
	if r4.ScopedText != "#frame .z{b:c}" {
		t.Errorf("different container should rescope, got %q", r4.ScopedText)
	}
}
