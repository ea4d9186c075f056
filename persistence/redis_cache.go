// persistence/redis_cache.go
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/config"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/models"
)

const tierKeyPrefix = "overlay:tier:"

// CachedStore is a read-through redis cache in front of a TierStore.
// Redis failures fall back to the store; they never fail a lookup.
type CachedStore struct {
	store TierStore
	rdb   *redis.Client
	ttl   time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewCachedStore(store TierStore, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{store: store, rdb: rdb, ttl: ttl}
}

func tierKey(userID string) string {
	return tierKeyPrefix + userID
}

func (c *CachedStore) GetEntitlement(ctx context.Context, userID string) (models.Entitlement, error) {
	raw, err := c.rdb.Get(ctx, tierKey(userID)).Bytes()
	if err == nil {
		var e models.Entitlement
		if jsonErr := json.Unmarshal(raw, &e); jsonErr == nil {
			return e, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Log.Debugf("tier cache get %s: %v", userID, err)
	}

	e, err := c.store.GetEntitlement(ctx, userID)
	if err != nil {
		return e, err
	}
	if data, jsonErr := json.Marshal(e); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, tierKey(userID), data, c.ttl).Err(); setErr != nil {
			logger.Log.Debugf("tier cache set %s: %v", userID, setErr)
		}
	}
	return e, nil
}

// SetEntitlement writes through to the store and drops the cached row.
func (c *CachedStore) SetEntitlement(ctx context.Context, userID string, tier models.Tier, expiresAt *time.Time) error {
	if err := c.store.SetEntitlement(ctx, userID, tier, expiresAt); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, tierKey(userID)).Err(); err != nil {
		logger.Log.Warnf("tier cache invalidate %s: %v", userID, err)
	}
	return nil
}

func (c *CachedStore) Close() error {
	var err error
	if cerr := c.rdb.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close redis: %w", cerr))
	}
	if cerr := c.store.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close store: %w", cerr))
	}
	return err
}
