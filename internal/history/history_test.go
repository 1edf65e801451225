package history

import (
	"fmt"
	"testing"
)

func TestSnapshotSkipsDuplicates(t *testing.T) {
	m := New(0)
	if !m.Snapshot("a") {
		t.Fatal("expected first snapshot to be recorded")
	}
	if m.Snapshot("a") {
		t.Error("duplicate snapshot should be skipped")
	}
	if u, _ := m.Depth(); u != 1 {
		t.Errorf("expected undo depth 1, got %d", u)
	}
}

func TestSnapshotClearsRedo(t *testing.T) {
	m := New(0)
	m.Snapshot("a")
	m.Undo("b")
	if !m.CanRedo() {
		t.Fatal("expected redo entry after undo")
	}
	m.Snapshot("c")
	if m.CanRedo() {
		t.Error("new snapshot should clear redo")
	}
}

func TestEmptyStacks(t *testing.T) {
	m := New(0)
	if _, ok := m.Undo("x"); ok {
		t.Error("expected nothing to undo")
	}
	if _, ok := m.Redo("x"); ok {
		t.Error("expected nothing to redo")
	}
}

func TestUndoRedoSymmetry(t *testing.T) {
	for k := 1; k <= 6; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			m := New(0)
			current := ""
			for i := 1; i <= k; i++ {
				current = fmt.Sprintf("<p>state %d</p>", i)
				m.Snapshot(current)
			}
			original := current

			for i := 0; i < k; i++ {
				entry, ok := m.Undo(current)
				if !ok {
					t.Fatalf("undo %d: nothing to undo", i)
				}
				current = entry
			}
			if current != "<p>state 1</p>" {
				t.Errorf("after undoing everything expected first state, got %q", current)
			}

			for i := 0; i < k; i++ {
				entry, ok := m.Redo(current)
				if !ok {
					t.Fatalf("redo %d: nothing to redo", i)
				}
				current = entry
			}
			if current != original {
				t.Errorf("expected %q after redo, got %q", original, current)
			}
		})
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	m := New(3)
	for i := 0; i < 5; i++ {
		m.Snapshot(fmt.Sprint(i))
	}
	if u, _ := m.Depth(); u != 3 {
		t.Fatalf("expected depth 3, got %d", u)
	}
	var got []string
	for {
		e, ok := m.Undo("cur")
		if !ok {
			break
		}
		got = append(got, e)
	}
	want := []string{"4", "3", "2"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestClear(t *testing.T) {
	m := New(0)
	m.Snapshot("a")
	m.Snapshot("b")
	m.Undo("c")
	m.Clear()
	if m.CanUndo() || m.CanRedo() {
		t.Error("expected both stacks empty after Clear")
	}
}
