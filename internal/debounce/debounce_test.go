package debounce

import (
	"testing"
	"time"
)

func TestBurstCoalescesIntoOneRun(t *testing.T) {
	clock := NewManualClock()
	task := NewTask(clock, time.Second)

	runs := 0
	for i := 0; i < 10; i++ {
		task.Schedule(func() { runs++ })
		clock.Advance(100 * time.Millisecond)
	}
	if runs != 0 {
		t.Fatalf("expected no run inside the quiet window, got %d", runs)
	}

	clock.Advance(time.Second)
	if runs != 1 {
		t.Errorf("expected exactly 1 run, got %d", runs)
	}
	if task.Pending() {
		t.Error("expected nothing pending after the run")
	}
}

func TestSpacedEventsRunEachTime(t *testing.T) {
	clock := NewManualClock()
	task := NewTask(clock, time.Second)

	runs := 0
	for i := 0; i < 5; i++ {
		task.Schedule(func() { runs++ })
		clock.Advance(time.Second)
	}
	if runs != 5 {
		t.Errorf("expected 5 runs, got %d", runs)
	}
}

func TestCancel(t *testing.T) {
	clock := NewManualClock()
	task := NewTask(clock, time.Second)

	ran := false
	task.Schedule(func() { ran = true })
	if !task.Pending() {
		t.Fatal("expected pending task")
	}
	if !task.Cancel() {
		t.Error("expected Cancel to report a pending task")
	}
	clock.Advance(2 * time.Second)
	if ran {
		t.Error("cancelled task ran")
	}
	if task.Cancel() {
		t.Error("second Cancel should report nothing pending")
	}
	if clock.Pending() != 0 {
		t.Errorf("expected no timers left, got %d", clock.Pending())
	}
}

func TestRescheduleKeepsOnlyLatestCallback(t *testing.T) {
	clock := NewManualClock()
	task := NewTask(clock, time.Second)

	var got []string
	task.Schedule(func() { got = append(got, "first") })
	clock.Advance(500 * time.Millisecond)
	task.Schedule(func() { got = append(got, "second") })
	clock.Advance(999 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("ran too early: %v", got)
	}
	clock.Advance(time.Millisecond)
	if len(got) != 1 || got[0] != "second" {
		t.Errorf("expected [second], got %v", got)
	}
}

func TestRealClockRuns(t *testing.T) {
	task := NewTask(nil, 10*time.Millisecond)
	done := make(chan struct{})
	task.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real clock task did not run")
	}
}
