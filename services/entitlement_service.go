// services/entitlement_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/models"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/persistence"
)

// TierResolver answers which subscription tier a user holds.
type TierResolver interface {
	ResolveTier(ctx context.Context, userID string) models.Tier
}

type EntitlementService struct {
	store persistence.TierStore
	clock clockwork.Clock
}

func NewEntitlementService(store persistence.TierStore, clock clockwork.Clock) *EntitlementService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EntitlementService{store: store, clock: clock}
}

// ResolveTier never fails: unknown users, expired entitlements and store
// errors all resolve to the lowest tier.
func (s *EntitlementService) ResolveTier(ctx context.Context, userID string) models.Tier {
	if userID == "" {
		return models.LowestTier
	}
	e, err := s.store.GetEntitlement(ctx, userID)
	if err != nil {
		if !errors.Is(err, persistence.ErrRecordNotFound) {
			logger.Log.Warnf("resolve tier for %s: %v", userID, err)
		}
		return models.LowestTier
	}
	if !e.Active(s.clock.Now()) {
		return models.LowestTier
	}
	tier, _ := models.ParseTier(string(e.Tier))
	return tier
}

// Grant sets the user's tier. A zero ttl never expires.
func (s *EntitlementService) Grant(ctx context.Context, userID string, tier models.Tier, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := s.clock.Now().Add(ttl)
		expiresAt = &t
	}
	return s.store.SetEntitlement(ctx, userID, tier, expiresAt)
}
