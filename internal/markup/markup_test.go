package markup

import (
	"errors"
	"strings"
	"testing"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		inner  string
		marker Marker
	}{
		{
			name:   "main content id with nested divs",
			text:   `<html><body><div id="main-content"><div>a</div><div>b</div></div><footer></footer></body></html>`,
			inner:  `<div>a</div><div>b</div>`,
			marker: MarkerMainContent,
		},
		{
			name:   "main element",
			text:   `<body><header></header><main class="x"><p>b</p></main></body>`,
			inner:  `<p>b</p>`,
			marker: MarkerMain,
		},
		{
			name:   "main content preferred over main",
			text:   `<body><main><section id="main-content"><p>x</p></section></main></body>`,
			inner:  `<p>x</p>`,
			marker: MarkerMainContent,
		},
		{
			name:   "whole body fallback",
			text:   "<!DOCTYPE html>\n<html><head><title>T</title></head><body class=\"home\">\n<p>c</p>\n</body></html>",
			inner:  "\n<p>c</p>\n",
			marker: MarkerBody,
		},
		{
			name:   "unclosed body",
			text:   `<html><body><p>c</p></html>`,
			inner:  `<p>c</p>`,
			marker: MarkerBody,
		},
		{
			name:   "unclosed marker falls back to body",
			text:   `<body><div id="main-content"><p>d</p></body>`,
			inner:  `<div id="main-content"><p>d</p>`,
			marker: MarkerBody,
		},
		{
			name:   "markers inside scripts are ignored",
			text:   `<body><script>document.write("<main>")</script><p>e</p></body>`,
			inner:  `<script>document.write("<main>")</script><p>e</p>`,
			marker: MarkerBody,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Locate(tt.text)
			if err != nil {
				t.Fatalf("Locate: %v", err)
			}
			if got := r.Inner(tt.text); got != tt.inner {
				t.Errorf("inner = %q, want %q", got, tt.inner)
			}
			if r.Marker != tt.marker {
				t.Errorf("marker = %s, want %s", r.Marker, tt.marker)
			}
		})
	}
}

func TestLocateNotFound(t *testing.T) {
	_, err := Locate(`<p>just a fragment</p>`)
	if !errors.Is(err, ErrRegionNotFound) {
		t.Errorf("expected ErrRegionNotFound, got %v", err)
	}
}

func TestRegionReplace(t *testing.T) {
	text := `<body><main><p>old</p></main></body>`
	r, err := Locate(text)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Replace(text, "<p>new</p>"); got != `<body><main><p>new</p></main></body>` {
		t.Errorf("got %q", got)
	}
}

const region = `<header data-include="header"></header><h1>Title</h1><p>Text <span class="fa fa-phone"></span></p><button>Go</button><script>var x = 1 < 2;</script>`

func TestPrepareDecorateNormalizeRoundTrip(t *testing.T) {
	projected, err := Prepare(region, map[string]string{"header": `<nav><a href="/">Home</a></nav>`})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if strings.Contains(projected, "<script") {
		t.Errorf("projected markup still contains a script: %s", projected)
	}
	if !strings.Contains(projected, `<nav><a href="/">Home</a></nav>`) {
		t.Errorf("include was not substituted: %s", projected)
	}

	decorated, n, err := Decorate(projected)
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	if n != 2 {
		t.Errorf("expected heading and paragraph decorated, got %d nodes", n)
	}
	if strings.Count(decorated, `contenteditable="true"`) != 2 {
		t.Errorf("unexpected decoration: %s", decorated)
	}

	got, err := Normalize(decorated)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != region {
		t.Errorf("round trip mismatch\n got: %s\nwant: %s", got, region)
	}
}

func TestStripRestoresOriginalAttributes(t *testing.T) {
	src := `<p style="color:red" title="x">A</p><div data-pe-artifact="tooltip">Click to edit</div>`
	decorated, _, err := Decorate(src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(decorated, "outline") || !strings.Contains(decorated, `title="Click to edit"`) {
		t.Errorf("expected edit styling and tooltip, got %s", decorated)
	}

	got, err := Strip(decorated)
	if err != nil {
		t.Fatal(err)
	}
	if got != `<p style="color:red" title="x">A</p>` {
		t.Errorf("got %s", got)
	}
}

func TestDecoratePolicy(t *testing.T) {
	src := `<nav><p>menu</p></nav><form><label><span>Name</span></label></form>` +
		`<a href="#"><span>Go</span></a><div data-include="footer"><p>f</p></div>` +
		`<div><span>Note</span><span class="icon-star">*</span><span> </span></div>`
	_, n, err := Decorate(src)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected only the plain span to be decorated, got %d", n)
	}
}

func TestDecorateSkipsNestedEditables(t *testing.T) {
	_, n, err := Decorate(`<p>Call <span>today</span></p>`)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 decorated node, got %d", n)
	}
}

func TestRestoreKeepsUnsubstitutedPlaceholders(t *testing.T) {
	src := `<div data-include="footer"><p>Loading…</p></div>`
	projected, err := Prepare(src, map[string]string{"header": "<p>h</p>"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Restore(projected)
	if err != nil {
		t.Fatal(err)
	}
	if got != src {
		t.Errorf("got %s", got)
	}
}

func TestNormalizeEditedContent(t *testing.T) {
	projected, err := Prepare(region, map[string]string{"header": "<nav>Menu</nav>"})
	if err != nil {
		t.Fatal(err)
	}
	decorated, _, err := Decorate(projected)
	if err != nil {
		t.Fatal(err)
	}
	edited := strings.Replace(decorated, ">Title<", ">New title<", 1)

	got, err := Normalize(edited)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Replace(region, "Title", "New title", 1)
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}
