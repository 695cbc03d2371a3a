// Package localstore holds the terminal-side durable key/value stores. Every Save
// replaces the whole value for a key in one atomic write.
package localstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/marco-pos/pkg/config"
	"github.com/angelmondragon/marco-pos/pkg/redis"
)

// Store is a durable key/value store local to the terminal.
type Store interface {
	// Save replaces the value stored under key.
	Save(ctx context.Context, key string, data []byte) error
	// Load returns the value stored under key, or nil with no error when absent.
	Load(ctx context.Context, key string) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Driver. redisClient is only used by the redis driver.
func Open(ctx context.Context, cfg config.LocalStoreConfig, redisClient *redis.Client, terminalID string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.LocalStoreBolt:
		return OpenBolt(cfg.Path)
	case config.LocalStoreSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case config.LocalStoreRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis local store requires a redis client")
		}
		return NewRedisStore(redisClient, terminalID), nil
	case config.LocalStoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown local store driver %q", cfg.Driver)
	}
}

func cloneBytes(data []byte) []byte {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
