package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is the incoming WebSocket message format.
type clientMessage struct {
	Type   string `json:"type"` // source_edit, rendered_edit, preview_edit, cursor, blur, paste, snapshot, undo, redo, load
	Text   string `json:"text"`
	HTML   string `json:"html"`
	Cursor int    `json:"cursor"`
	PageID string `json:"page_id"`
}

// sendBuffer is how many events may queue for a slow client before
// further events are dropped.
const sendBuffer = 64

// client relays session events to one connection. writeLoop is the only
// goroutine that writes to conn.
type client struct {
	conn *websocket.Conn
	send chan session.Event
	log  *zap.Logger

	once sync.Once
	done chan struct{}
}

func (c *client) Publish(ev session.Event) {
	select {
	case <-c.done:
	case c.send <- ev:
	default:
		c.log.Warn("Dropping event for slow client", zap.String("type", string(ev.Type)))
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			if err := c.conn.WriteJSON(ev); err != nil {
				c.log.Debug("Websocket write failed", zap.Error(err))
				c.close()
				return
			}
		}
	}
}

func (e *Editor) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s := e.sessionFor(w, r)
	if s == nil {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.log.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &client{
		conn: conn,
		send: make(chan session.Event, sendBuffer),
		log:  e.log.With(zap.String("session", chi.URLParam(r, "id"))),
		done: make(chan struct{}),
	}
	defer c.close()
	unsubscribe := s.Subscribe(c)
	defer unsubscribe()
	go c.writeLoop()
	s.Refresh()

	// Request timeouts must not end the connection's page loads.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket read failed", zap.Error(err))
			}
			return
		}

		var m clientMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			c.Publish(errorNotice("invalid message format"))
			continue
		}
		if err := e.dispatch(ctx, s, m); err != nil {
			// Inactive-view edits have already been reported by the session.
			if errors.Is(err, session.ErrInactiveView) {
				continue
			}
			c.Publish(errorNotice(err.Error()))
		}
	}
}

func (e *Editor) dispatch(ctx context.Context, s *session.Session, m clientMessage) error {
	switch m.Type {
	case "source_edit":
		return s.SourceEdited(m.Text, m.Cursor)
	case "rendered_edit":
		return s.RenderedEdited(m.HTML)
	case "preview_edit":
		return s.PreviewEdited(m.HTML)
	case "cursor":
		s.SetCursor(m.Cursor)
	case "blur":
		s.Blur()
	case "paste":
		s.Paste()
	case "snapshot":
		s.Snapshot()
	case "undo":
		_, err := s.Undo()
		return err
	case "redo":
		_, err := s.Redo()
		return err
	case "load":
		if m.PageID == "" {
			return errors.New("page_id is required")
		}
		// Load reports its own failures as notices.
		if err := s.LoadPage(ctx, m.PageID); err != nil {
			e.log.Debug("Load over websocket failed", zap.String("page", m.PageID), zap.Error(err))
		}
	default:
		return fmt.Errorf("unknown message type: %s", m.Type)
	}
	return nil
}

func errorNotice(msg string) session.Event {
	return session.Event{
		Type:   session.EventNotice,
		Notice: &session.Notice{Level: session.LevelError, Message: msg},
	}
}
