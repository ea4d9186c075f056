// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
)

type Session struct {
	ID          string
	Conn        network.Connection
	Login       string
	Channel     string
	Mount       string
	ConnectedAt time.Time

	lastActivity time.Time
	mutex        sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Conn:         conn,
		ConnectedAt:  now,
		lastActivity: now,
	}
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActivity = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActivity
}

func (s *Session) Send(data []byte) error {
	return s.Conn.Send(data)
}

func (s *Session) IsOpen() bool {
	return s.Conn != nil && s.Conn.IsOpen()
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager is the session table. It keeps registration order so that a
// broadcast visits sockets in the order they connected.
type Manager struct {
	sessions map[string]*Session
	order    []string
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.sessions[session.ID]; !exists {
		m.order = append(m.order, session.ID)
	}
	m.sessions[session.ID] = session
}

// Remove deletes the session and reports whether it was present.
func (m *Manager) Remove(sessionID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.sessions[sessionID]; !exists {
		return false
	}
	delete(m.sessions, sessionID)
	for i, id := range m.order {
		if id == sessionID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// List returns a snapshot of all sessions in registration order.
func (m *Manager) List() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.sessions[id])
	}
	return result
}

func (m *Manager) GetByLogin(login string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, id := range m.order {
		if s := m.sessions[id]; s.Login == login {
			result = append(result, s)
		}
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
