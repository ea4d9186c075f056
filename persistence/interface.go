// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/models"
)

// TierStore persists user entitlements.
type TierStore interface {
	GetEntitlement(ctx context.Context, userID string) (models.Entitlement, error)
	SetEntitlement(ctx context.Context, userID string, tier models.Tier, expiresAt *time.Time) error
	Close() error
}

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidTier    = errors.New("invalid tier")
)

func checkTier(tier models.Tier) error {
	if _, ok := models.ParseTier(string(tier)); !ok {
		return ErrInvalidTier
	}
	return nil
}
