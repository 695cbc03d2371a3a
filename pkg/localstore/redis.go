package localstore

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/marco-pos/pkg/redis"
)

type redisClient interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Ping(ctx context.Context) error
	QueueKey(terminalID, name string) string
}

// RedisStore keeps values in Redis under a per-terminal namespace. The Redis
// client lifecycle belongs to the caller, so Close is a no-op.
type RedisStore struct {
	client     redisClient
	terminalID string
}

func NewRedisStore(client redisClient, terminalID string) *RedisStore {
	return &RedisStore{client: client, terminalID: terminalID}
}

func (s *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, s.client.QueueKey(s.terminalID, key), data, 0)
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.GetBytes(ctx, s.client.QueueKey(s.terminalID, key))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *RedisStore) Close() error {
	return nil
}
