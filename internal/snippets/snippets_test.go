package snippets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinOnly(t *testing.T) {
	lib := New("", nil)
	list, err := lib.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != len(builtin) {
		t.Fatalf("expected %d snippets, got %d", len(builtin), len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name > list[i].Name {
			t.Error("list should be sorted by name")
		}
	}

	out, err := lib.Render("card")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<div class="card">`) {
		t.Errorf("unexpected card markup %q", out)
	}
}

func TestMarkdownRendered(t *testing.T) {
	out, err := New("", nil).Render("faq")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<h2") || !strings.Contains(out, "<strong>Do I need an appointment?</strong>") {
		t.Errorf("markdown not converted: %q", out)
	}
}

func TestDirectorySnippets(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "opening-hours.md"), []byte("# Hours\n\n| Day | Open |\n| --- | --- |\n| Mon | 8-20 |\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "card.html"), []byte(`<div class="my-card"></div>`), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	lib := New(dir, nil)
	s, err := lib.Get("opening-hours")
	if err != nil {
		t.Fatal(err)
	}
	if s.Title != "Opening Hours" || s.Format != FormatMarkdown || s.Builtin {
		t.Errorf("unexpected snippet %+v", s)
	}
	out, err := lib.Render("opening-hours")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<table>") {
		t.Errorf("expected a GFM table, got %q", out)
	}

	out, _ = lib.Render("card")
	if out != `<div class="my-card"></div>` {
		t.Errorf("directory snippet should override the built-in, got %q", out)
	}
	if _, err := lib.Get("notes"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unsupported files should be ignored, got %v", err)
	}
}

func TestGetRejectsPaths(t *testing.T) {
	lib := New(t.TempDir(), nil)
	for _, name := range []string{"", "../card", "a/b", `a\b`} {
		if _, err := lib.Get(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q): expected ErrNotFound, got %v", name, err)
		}
	}
}
