package editor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/pagedit/internal/blocks"
	"github.com/ziadkadry99/pagedit/internal/loader"
	"github.com/ziadkadry99/pagedit/internal/pages"
	"github.com/ziadkadry99/pagedit/internal/session"
	"github.com/ziadkadry99/pagedit/internal/snippets"
)

const aboutPage = `<!DOCTYPE html>
<html><head><title>About us</title><link rel="stylesheet" href="css/site.css"></head>
<body><header>Clinic</header><main><h1>About</h1><p>We are open on weekdays.</p></main><footer>Footer</footer></body></html>`

func setupTest(t *testing.T) (*Editor, *session.Manager) {
	t.Helper()

	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "css"), 0o755)
	if err := os.WriteFile(filepath.Join(root, "about.html"), []byte(aboutPage), 0o644); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(root, "css", "site.css"), []byte("h1 { color: teal; }"), 0o644)

	l, err := loader.New(loader.Options{SiteRoot: root}, nil, nil)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	sessions := session.NewManager(l, session.Options{QuietPeriod: 20 * time.Millisecond})
	t.Cleanup(func() { sessions.Close() })

	lister := pages.NewLister(pages.Config{Root: root}, nil)
	return New(sessions, lister, snippets.New("", nil), "/site/", nil), sessions
}

func setupRouter(e *Editor) chi.Router {
	r := chi.NewRouter()
	e.RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, r http.Handler, pageID string) sessionResponse {
	t.Helper()
	w := do(r, http.MethodPost, "/api/sessions", `{"page_id":"`+pageID+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding session: %v", err)
	}
	return resp
}

func TestIndexServed(t *testing.T) {
	e, _ := setupTest(t)
	w := do(setupRouter(e), http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/ws/sessions/") {
		t.Error("index should contain the editor client")
	}
}

func TestPagesEndpoint(t *testing.T) {
	e, _ := setupTest(t)
	w := do(setupRouter(e), http.MethodGet, "/api/pages", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []pages.Page
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != "about.html" || list[0].Title != "About us" {
		t.Errorf("unexpected pages %+v", list)
	}
}

func TestCreateSessionLoadsPage(t *testing.T) {
	e, _ := setupTest(t)
	r := setupRouter(e)

	resp := createSession(t, r, "about.html")
	if resp.Page.PageID != "about.html" || resp.Page.Method != loader.MethodIsolated {
		t.Errorf("unexpected page info %+v", resp.Page)
	}

	w := do(r, http.MethodGet, "/api/sessions/"+resp.ID+"/text", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var doc session.Document
	json.NewDecoder(w.Body).Decode(&doc)
	if doc.Text != aboutPage || doc.Dirty {
		t.Errorf("unexpected document %+v", doc)
	}

	w = do(r, http.MethodGet, "/api/sessions", "")
	var list []session.Summary
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != resp.ID {
		t.Errorf("unexpected session list %+v", list)
	}
}

func TestSessionNotFound(t *testing.T) {
	e, _ := setupTest(t)
	r := setupRouter(e)
	for _, path := range []string{"/api/sessions/missing", "/api/sessions/missing/text", "/preview/missing"} {
		if w := do(r, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestInvalidPageID(t *testing.T) {
	e, sessions := setupTest(t)
	w := do(setupRouter(e), http.MethodPost, "/api/sessions", `{"page_id":"\u0000"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if len(sessions.List()) != 0 {
		t.Error("failed session should be removed")
	}
}

func TestTextWithoutPage(t *testing.T) {
	e, _ := setupTest(t)
	r := setupRouter(e)
	resp := createSession(t, r, "")
	if w := do(r, http.MethodGet, "/api/sessions/"+resp.ID+"/text", ""); w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestInsertSnippet(t *testing.T) {
	e, _ := setupTest(t)
	r := setupRouter(e)
	resp := createSession(t, r, "about.html")

	w := do(r, http.MethodPost, "/api/sessions/"+resp.ID+"/snippets/card", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodGet, "/api/sessions/"+resp.ID+"/text", "")
	var doc session.Document
	json.NewDecoder(w.Body).Decode(&doc)
	if !strings.HasPrefix(doc.Text, `<div class="card">`) || !doc.Dirty {
		t.Errorf("snippet not inserted at the cursor: %q", doc.Text[:40])
	}

	if w := do(r, http.MethodPost, "/api/sessions/"+resp.ID+"/snippets/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown snippet, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/sessions/"+resp.ID+"/insert", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty markup, got %d", w.Code)
	}
}

func TestBlocksEndpoints(t *testing.T) {
	e, _ := setupTest(t)
	r := setupRouter(e)
	resp := createSession(t, r, "about.html")
	path := "/api/sessions/" + resp.ID + "/blocks"

	w := do(r, http.MethodGet, path, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got blocksResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding blocks: %v", err)
	}
	if len(got.Blocks) != 2 || got.Blocks[1].Kind != blocks.KindParagraph {
		t.Fatalf("expected heading and paragraph, got %+v", got.Blocks)
	}

	edited := got.Blocks
	edited[1].Text = "Open every day."
	body, _ := json.Marshal(blocksRequest{Blocks: edited})
	w = do(r, http.MethodPost, path, string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var applied blocksResponse
	json.NewDecoder(w.Body).Decode(&applied)
	if len(applied.Skipped) != 0 {
		t.Errorf("unexpected skipped blocks: %+v", applied.Skipped)
	}
	if len(applied.Blocks) != 2 || applied.Blocks[1].Text != "Open every day." {
		t.Errorf("expected refreshed blocks, got %+v", applied.Blocks)
	}

	w = do(r, http.MethodGet, "/api/sessions/"+resp.ID+"/text", "")
	var doc session.Document
	json.NewDecoder(w.Body).Decode(&doc)
	if !strings.Contains(doc.Text, "<p>Open every day.</p>") || !doc.Dirty {
		t.Errorf("block edit not written to the document: %q", doc.Text)
	}

	// The same edit again refers to markup that is gone.
	w = do(r, http.MethodPost, path, string(body))
	json.NewDecoder(w.Body).Decode(&applied)
	if len(applied.Skipped) != 1 {
		t.Errorf("expected the stale paragraph to be skipped, got %+v", applied.Skipped)
	}

	if w := do(r, http.MethodPost, path, `{"blocks":[{"kind":"table"}]}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown kind, got %d", w.Code)
	}
	empty := createSession(t, r, "")
	if w := do(r, http.MethodGet, "/api/sessions/"+empty.ID+"/blocks", ""); w.Code != http.StatusConflict {
		t.Errorf("expected 409 without a page, got %d", w.Code)
	}
}

func TestSaveReturnsAttachment(t *testing.T) {
	e, _ := setupTest(t)
	r := setupRouter(e)
	resp := createSession(t, r, "about.html")

	w := do(r, http.MethodPost, "/api/sessions/"+resp.ID+"/save", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="about.html"` {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	body := w.Body.String()
	if !strings.Contains(body, `<style data-href="css/site.css">`) || !strings.Contains(body, "h1 { color: teal; }") {
		t.Errorf("stylesheet not inlined: %s", body)
	}
	if strings.Contains(body, `<link rel="stylesheet"`) {
		t.Error("inlined stylesheet link should be removed")
	}
}

func TestPreviewControls(t *testing.T) {
	e, _ := setupTest(t)
	r := setupRouter(e)
	resp := createSession(t, r, "about.html")
	path := "/api/sessions/" + resp.ID + "/preview"

	w := do(r, http.MethodPut, path, `{"size":"mobile"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var state session.PreviewState
	json.NewDecoder(w.Body).Decode(&state)
	if state.Size != 375 {
		t.Errorf("expected mobile width, got %d", state.Size)
	}

	if w := do(r, http.MethodPut, path, `{"size":"watch"}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown size, got %d", w.Code)
	}
}

func TestPreviewDocument(t *testing.T) {
	e, sessions := setupTest(t)
	r := setupRouter(e)
	resp := createSession(t, r, "about.html")

	// The preview loads in the background.
	deadline := time.Now().Add(3 * time.Second)
	var w *httptest.ResponseRecorder
	for time.Now().Before(deadline) {
		w = do(r, http.MethodGet, "/preview/"+resp.ID, "")
		if w.Code != http.StatusServiceUnavailable {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s (state %v)", w.Code, w.Body.String(), sessions.Get(resp.ID).PreviewState())
	}
	if !strings.Contains(w.Body.String(), `<base href="/site/"`) {
		t.Errorf("preview should carry the site base: %s", w.Body.String())
	}
}

func dial(t *testing.T, server *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions/" + id
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads events until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(session.Event) bool) session.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev session.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(ev) {
			return ev
		}
	}
}

func TestWebSocketSourceEditSyncs(t *testing.T) {
	e, _ := setupTest(t)
	r := setupRouter(e)
	resp := createSession(t, r, "about.html")

	server := httptest.NewServer(r)
	defer server.Close()
	conn := dial(t, server, resp.ID)

	// A new client receives the current state.
	ev := readUntil(t, conn, func(ev session.Event) bool { return ev.Type == session.EventSource })
	if ev.Text != aboutPage {
		t.Errorf("unexpected source %q", ev.Text)
	}

	edited := strings.Replace(aboutPage, "<h1>About</h1>", "<h1>About the clinic</h1>", 1)
	if err := conn.WriteJSON(clientMessage{Type: "source_edit", Text: edited, Cursor: 10}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev = readUntil(t, conn, func(ev session.Event) bool {
		return ev.Type == session.EventRendered && strings.Contains(ev.HTML, "About the clinic")
	})
	if !strings.Contains(ev.CSS, ".pe-surface") {
		t.Errorf("rendered event should carry scoped styles, got %q", ev.CSS)
	}
}

func TestWebSocketUnknownType(t *testing.T) {
	e, _ := setupTest(t)
	r := setupRouter(e)
	resp := createSession(t, r, "")

	server := httptest.NewServer(r)
	defer server.Close()
	conn := dial(t, server, resp.ID)

	if err := conn.WriteJSON(clientMessage{Type: "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readUntil(t, conn, func(ev session.Event) bool { return ev.Type == session.EventNotice })
	if ev.Notice.Level != session.LevelError || !strings.Contains(ev.Notice.Message, "unknown message type") {
		t.Errorf("unexpected notice %+v", ev.Notice)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	e, _ := setupTest(t)
	server := httptest.NewServer(setupRouter(e))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions/missing"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 response, got %v", resp)
	}
}
