package drafts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/pagedit/internal/db"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestSaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	d := Draft{
		PageID:      "about.html",
		Content:     "<html><body><main><h1>About</h1></main></body></html>",
		HTMLContent: "<h1>About</h1>",
		CSSContent:  ".pe-surface h1{color:red}",
	}
	if err := store.Save(ctx, d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "about.html")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a draft")
	}
	if got.Content != d.Content || got.HTMLContent != d.HTMLContent || got.CSSContent != d.CSSContent {
		t.Errorf("unexpected draft %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}

	d.Content = "changed"
	if err := store.Save(ctx, d); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, _ = store.Get(ctx, "about.html")
	if got.Content != "changed" {
		t.Errorf("expected upsert, got %q", got.Content)
	}
}

func TestGetMissing(t *testing.T) {
	store := setupTestStore(t)
	got, err := store.Get(context.Background(), "nope.html")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil draft, got %+v", got)
	}
}

func TestSaveRequiresPageID(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Save(context.Background(), Draft{Content: "x"}); err == nil {
		t.Error("expected error for empty page id")
	}
}

func TestListAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	store.Save(ctx, Draft{PageID: "a.html", Content: "a", Timestamp: now.Add(-time.Hour)})
	store.Save(ctx, Draft{PageID: "b.html", Content: "b", Timestamp: now})

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].PageID != "b.html" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[0].Content != "" {
		t.Error("list should not carry content")
	}

	if err := store.Delete(ctx, "a.html"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, _ = store.List(ctx)
	if len(list) != 1 {
		t.Errorf("expected 1 draft after delete, got %d", len(list))
	}
}

func TestPrune(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	store.Save(ctx, Draft{PageID: "old.html", Content: "o", Timestamp: now.Add(-72 * time.Hour)})
	store.Save(ctx, Draft{PageID: "new.html", Content: "n", Timestamp: now})

	n, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned draft, got %d", n)
	}
	if d, _ := store.Get(ctx, "old.html"); d != nil {
		t.Error("old draft should be gone")
	}
	if d, _ := store.Get(ctx, "new.html"); d == nil {
		t.Error("new draft should remain")
	}
}

func TestPrunerRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	store.Save(ctx, Draft{PageID: "old.html", Content: "o", Timestamp: time.Now().Add(-48 * time.Hour)})

	p, err := NewPruner(store, "@daily", 24*time.Hour, nil)
	if err != nil {
		t.Fatalf("NewPruner: %v", err)
	}
	if n := p.Run(ctx); n != 1 {
		t.Errorf("expected 1 pruned draft, got %d", n)
	}

	if _, err := NewPruner(store, "not a schedule", time.Hour, nil); err == nil {
		t.Error("expected error for an invalid schedule")
	}
}

func TestExports(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e, err := store.RecordExport(ctx, Export{PageID: "about.html", FileName: "about.html", SizeBytes: 120})
	if err != nil {
		t.Fatalf("RecordExport: %v", err)
	}
	if e.ID == "" {
		t.Error("expected non-empty ID")
	}
	store.RecordExport(ctx, Export{PageID: "index.html", FileName: "index.html"})

	list, err := store.ListExports(ctx, ExportFilter{PageID: "about.html"})
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	if len(list) != 1 || list[0].SizeBytes != 120 {
		t.Errorf("unexpected exports %+v", list)
	}
}

func TestRoutes(t *testing.T) {
	store := setupTestStore(t)
	store.Save(context.Background(), Draft{PageID: "services/x-ray.html", Content: "<p>x</p>"})

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/drafts/services/x-ray.html", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var d Draft
	if err := json.NewDecoder(w.Body).Decode(&d); err != nil {
		t.Fatal(err)
	}
	if d.Content != "<p>x</p>" {
		t.Errorf("unexpected draft %+v", d)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/drafts/services/x-ray.html", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/drafts/services/x-ray.html", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/drafts", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "[]\n" {
		t.Errorf("expected empty list, got %d %q", w.Code, w.Body.String())
	}
}
