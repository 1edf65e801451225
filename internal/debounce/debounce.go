// Package debounce provides a pending-task handle with cancel semantics.
// A Task holds at most one scheduled callback; scheduling again cancels the
// previous one, so bursts of events collapse into a single run.
package debounce

import (
	"sync"
	"time"
)

// Timer is the cancel handle returned by a Clock.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The real clock is backed by time.AfterFunc;
// tests use ManualClock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// Task is a single pending-task slot.
type Task struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	timer Timer
	seq   uint64
}

// NewTask creates a task that runs scheduled callbacks after delay of quiet.
// A nil clock means the wall clock.
func NewTask(clock Clock, delay time.Duration) *Task {
	if clock == nil {
		clock = RealClock()
	}
	return &Task{clock: clock, delay: delay}
}

// Schedule cancels any pending callback and schedules f to run after the
// task delay.
func (t *Task) Schedule(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.seq++
	seq := t.seq
	t.timer = t.clock.AfterFunc(t.delay, func() {
		t.mu.Lock()
		// A timer that fired while being replaced must not run.
		if seq != t.seq || t.timer == nil {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.mu.Unlock()
		f()
	})
}

// Cancel drops the pending callback, if any. It reports whether one was
// pending.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer == nil {
		return false
	}
	t.timer.Stop()
	t.timer = nil
	t.seq++
	return true
}

// Pending reports whether a callback is scheduled.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// Delay returns the quiet period of the task.
func (t *Task) Delay() time.Duration { return t.delay }
