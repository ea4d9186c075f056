// timer/timer.go
package timer

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Handle identifies one scheduled timer.
type Handle struct {
	ID     int64
	Key    string
	EndsAt time.Time
}

type task struct {
	handle   Handle
	interval time.Duration
	callback func()
	timer    clockwork.Timer
}

// Manager holds at most one live timer per key. Adding a timer for a key
// that already has one stops the old timer first, and a callback whose
// handle has been replaced never runs.
type Manager struct {
	clock  clockwork.Clock
	tasks  map[string]*task
	mutex  sync.Mutex
	nextId int64
}

func NewTimerManager(clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		clock:  clock,
		tasks:  make(map[string]*task),
		nextId: 1,
	}
}

// AddTimer schedules callback after delay. With interval > 0 the timer
// re-arms itself every interval until removed.
func (m *Manager) AddTimer(key string, delay, interval time.Duration, callback func()) Handle {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if prev, exists := m.tasks[key]; exists {
		prev.timer.Stop()
	}

	t := &task{
		handle: Handle{
			ID:     m.nextId,
			Key:    key,
			EndsAt: m.clock.Now().Add(delay),
		},
		interval: interval,
		callback: callback,
	}
	m.nextId++

	id := t.handle.ID
	t.timer = m.clock.AfterFunc(delay, func() { m.fire(key, id) })
	m.tasks[key] = t
	return t.handle
}

func (m *Manager) fire(key string, id int64) {
	m.mutex.Lock()
	t, exists := m.tasks[key]
	if !exists || t.handle.ID != id {
		// replaced or removed after the clock already fired
		m.mutex.Unlock()
		return
	}
	if t.interval > 0 {
		t.handle.EndsAt = m.clock.Now().Add(t.interval)
		t.timer = m.clock.AfterFunc(t.interval, func() { m.fire(key, id) })
	} else {
		delete(m.tasks, key)
	}
	callback := t.callback
	m.mutex.Unlock()

	callback()
}

// RemoveTimer cancels the timer for key and reports whether one existed.
func (m *Manager) RemoveTimer(key string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t, exists := m.tasks[key]
	if !exists {
		return false
	}
	t.timer.Stop()
	delete(m.tasks, key)
	return true
}

// RemovePrefix cancels every timer whose key starts with prefix.
func (m *Manager) RemovePrefix(prefix string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for key, t := range m.tasks {
		if strings.HasPrefix(key, prefix) {
			t.timer.Stop()
			delete(m.tasks, key)
			removed++
		}
	}
	return removed
}

// RemoveAll cancels every timer.
func (m *Manager) RemoveAll() int {
	return m.RemovePrefix("")
}

func (m *Manager) Get(key string) (Handle, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t, exists := m.tasks[key]
	if !exists {
		return Handle{}, false
	}
	return t.handle, true
}

func (m *Manager) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.tasks)
}
