// Package history keeps bounded undo/redo stacks of serialized surface
// snapshots.
package history

import "sync"

// DefaultCapacity is the number of entries kept per stack.
const DefaultCapacity = 50

// Manager holds the undo and redo stacks. Entries are opaque strings.
type Manager struct {
	mu       sync.Mutex
	capacity int
	undo     []string
	redo     []string
}

// New creates a Manager. A capacity <= 0 means DefaultCapacity.
func New(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{capacity: capacity}
}

// Snapshot records content as the newest undo entry and clears the redo
// stack. A snapshot equal to the current top entry is not pushed; Snapshot
// reports whether anything was recorded.
func (m *Manager) Snapshot(content string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := len(m.undo); n > 0 && m.undo[n-1] == content {
		return false
	}
	m.undo = push(m.undo, content, m.capacity)
	m.redo = m.redo[:0]
	return true
}

// Undo pops the newest undo entry. current is moved onto the redo stack
// before the popped entry is returned for restoring. ok is false when there
// is nothing to undo.
func (m *Manager) Undo(current string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.undo)
	if n == 0 {
		return "", false
	}
	entry := m.undo[n-1]
	m.undo = m.undo[:n-1]
	m.redo = push(m.redo, current, m.capacity)
	return entry, true
}

// Redo mirrors Undo.
func (m *Manager) Redo(current string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.redo)
	if n == 0 {
		return "", false
	}
	entry := m.redo[n-1]
	m.redo = m.redo[:n-1]
	m.undo = push(m.undo, current, m.capacity)
	return entry, true
}

// Clear empties both stacks.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = nil
	m.redo = nil
}

// CanUndo reports whether Undo would restore something.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

// CanRedo reports whether Redo would restore something.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Depth returns the sizes of the undo and redo stacks.
func (m *Manager) Depth() (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), len(m.redo)
}

// push appends entry, evicting the oldest entries past capacity.
func push(stack []string, entry string, capacity int) []string {
	stack = append(stack, entry)
	if over := len(stack) - capacity; over > 0 {
		stack = append(stack[:0], stack[over:]...)
	}
	return stack
}
