// persistence/memory.go
package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/models"
)

// MemoryStore keeps entitlements in process. It backs the "memory"
// driver used when no database is configured.
type MemoryStore struct {
	rows  map[string]models.Entitlement
	mutex sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]models.Entitlement)}
}

func (m *MemoryStore) GetEntitlement(_ context.Context, userID string) (models.Entitlement, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	e, exists := m.rows[userID]
	if !exists {
		return models.Entitlement{}, ErrRecordNotFound
	}
	return e, nil
}

func (m *MemoryStore) SetEntitlement(_ context.Context, userID string, tier models.Tier, expiresAt *time.Time) error {
	if err := checkTier(tier); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.rows[userID] = models.Entitlement{
		UserID:    userID,
		Tier:      tier,
		ExpiresAt: expiresAt,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
