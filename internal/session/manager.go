package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Summary describes a session for listings.
type Summary struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id,omitempty"`
	Dirty     bool      `json:"dirty"`
	Active    View      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager owns the open sessions.
type Manager struct {
	loader PageLoader
	opts   Options
	log    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions share l and opts.
func NewManager(l PageLoader, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		loader:   l,
		opts:     opts,
		log:      opts.Log.Named("sessions"),
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session without a page.
func (m *Manager) Create() *Session {
	s := New(uuid.New().String(), m.loader, m.opts)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.log.Info("Session opened", zap.String("session", s.ID()))
	return s
}

// Get returns the session with id, or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// List returns all sessions, oldest first.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	out := make([]Summary, 0, len(all))
	for _, s := range all {
		info := s.Info()
		out = append(out, Summary{ID: s.ID(), PageID: info.PageID, Dirty: info.Dirty, Active: info.Active, CreatedAt: s.created})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Remove closes and forgets the session with id. Removing an unknown id is
// not an error.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	m.log.Info("Session closed", zap.String("session", id))
	return s.Close()
}

// PageChanged tells every session editing pageID that the file changed
// outside the editor.
func (m *Manager) PageChanged(pageID string) {
	m.mu.Lock()
	var hit []*Session
	for _, s := range m.sessions {
		hit = append(hit, s)
	}
	m.mu.Unlock()

	for _, s := range hit {
		s.externalChange(pageID)
	}
}

func (s *Session) externalChange(pageID string) {
	s.lock()
	defer s.unlock()
	if !s.loaded || s.doc.PageID != pageID {
		return
	}
	if s.doc.Dirty {
		s.notice(LevelWarning, "%s changed on disk while you have unsaved edits.", pageID)
		return
	}
	s.notice(LevelInfo, "%s changed on disk; reload it to see the new version.", pageID)
}

// Close closes every session. Errors are combined.
func (m *Manager) Close() error {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs error
	for _, s := range all {
		errs = multierr.Append(errs, s.Close())
	}
	return errs
}
