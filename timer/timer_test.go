package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func waitFor(t *testing.T, ch <-chan string, within time.Duration) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for timer callback")
		return ""
	}
}

func expectNone(t *testing.T, ch <-chan string, within time.Duration) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected timer callback %q", v)
	case <-time.After(within):
	}
}

func TestManager_AddTimerFires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewTimerManager(clock)
	fired := make(chan string, 4)

	h := m.AddTimer("phase", 10*time.Second, 0, func() { fired <- "phase" })
	if !h.EndsAt.Equal(clock.Now().Add(10 * time.Second)) {
		t.Errorf("Unexpected EndsAt %v", h.EndsAt)
	}

	clock.Advance(9 * time.Second)
	expectNone(t, fired, 50*time.Millisecond)

	clock.Advance(time.Second)
	waitFor(t, fired, time.Second)

	if _, live := m.Get("phase"); live {
		t.Error("one-shot timer should be gone after firing")
	}
}

func TestManager_ReassignLeavesOneLiveHandle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewTimerManager(clock)
	fired := make(chan string, 8)

	first := m.AddTimer("player:p1", 5*time.Second, 0, func() { fired <- "first" })
	second := m.AddTimer("player:p1", 8*time.Second, 0, func() { fired <- "second" })

	if first.ID == second.ID {
		t.Fatal("replacement must get a fresh handle id")
	}
	if m.Len() != 1 {
		t.Fatalf("Expected exactly one live handle, got %d", m.Len())
	}
	live, _ := m.Get("player:p1")
	if live.ID != second.ID {
		t.Errorf("Expected live handle %d, got %d", second.ID, live.ID)
	}

	clock.Advance(5 * time.Second)
	expectNone(t, fired, 50*time.Millisecond)

	clock.Advance(3 * time.Second)
	if got := waitFor(t, fired, time.Second); got != "second" {
		t.Errorf("Expected second to fire, got %s", got)
	}
	expectNone(t, fired, 50*time.Millisecond)
}

func TestManager_ManyReassignmentsNeverDuplicate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewTimerManager(clock)
	var count atomic.Int32
	done := make(chan string, 1)

	for i := 0; i < 50; i++ {
		m.AddTimer("k", time.Second, 0, func() {
			count.Add(1)
			done <- "k"
		})
	}

	clock.Advance(time.Second)
	waitFor(t, done, time.Second)
	expectNone(t, done, 50*time.Millisecond)
	if count.Load() != 1 {
		t.Errorf("Expected a single firing, got %d", count.Load())
	}
}

func TestManager_IntervalRearms(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewTimerManager(clock)
	ticks := make(chan string, 8)

	m.AddTimer("countdown", time.Second, time.Second, func() { ticks <- "tick" })

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		waitFor(t, ticks, time.Second)
	}
	if _, live := m.Get("countdown"); !live {
		t.Fatal("interval timer should stay live")
	}

	m.RemoveTimer("countdown")
	clock.Advance(time.Second)
	expectNone(t, ticks, 50*time.Millisecond)
}

func TestManager_RemovePrefixAndAll(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewTimerManager(clock)
	fired := make(chan string, 8)

	m.AddTimer("session:a:idle", time.Second, 0, func() { fired <- "a" })
	m.AddTimer("session:a:ping", time.Second, 0, func() { fired <- "a2" })
	m.AddTimer("session:b:idle", time.Second, 0, func() { fired <- "b" })

	if n := m.RemovePrefix("session:a:"); n != 2 {
		t.Errorf("Expected 2 removed, got %d", n)
	}
	clock.Advance(time.Second)
	if got := waitFor(t, fired, time.Second); got != "b" {
		t.Errorf("Expected only b to fire, got %s", got)
	}
	expectNone(t, fired, 50*time.Millisecond)

	m.AddTimer("x", time.Second, 0, func() { fired <- "x" })
	m.AddTimer("y", time.Second, 0, func() { fired <- "y" })
	if n := m.RemoveAll(); n != 2 {
		t.Errorf("Expected 2 removed, got %d", n)
	}
	clock.Advance(time.Second)
	expectNone(t, fired, 50*time.Millisecond)
}

func TestManager_RemoveTimerUnknownKey(t *testing.T) {
	m := NewTimerManager(clockwork.NewFakeClock())
	if m.RemoveTimer("missing") {
		t.Error("RemoveTimer should report false for an unknown key")
	}
}
