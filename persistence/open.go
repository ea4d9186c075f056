// persistence/open.go
package persistence

import (
	"fmt"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/config"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
)

// Open builds the TierStore selected by cfg. When redis is configured the
// store is wrapped in a read-through cache.
func Open(cfg *config.Config) (TierStore, error) {
	var (
		store TierStore
		err   error
	)
	switch cfg.Database.Driver {
	case "gorm":
		store, err = NewGormPostgreSQL(cfg.Database.Postgres)
	case "sql":
		store, err = NewPostgreSQL(cfg.Database.Postgres)
	case "memory", "":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s tier store: %w", cfg.Database.Driver, err)
	}

	if cfg.Redis.Addr != "" {
		logger.Log.Infof("tier cache enabled at %s (ttl %s)", cfg.Redis.Addr, cfg.Redis.TierTTL)
		store = NewCachedStore(store, NewRedisClient(cfg.Redis), cfg.Redis.TierTTL)
	}
	return store, nil
}
