package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the minimal key-value surface shared gateway state lives
// behind: backoff counters, the cached access token and incident
// records. Keeping it this narrow lets the callers be unit-tested
// against MemoryStore instead of a live store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetWithTTL stores value under key, expiring after ttl.
	// A zero ttl stores the value without expiry.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisStore struct {
	client *RedisClient
}

// NewRedisStore adapts a RedisClient to the Store interface.
func NewRedisStore(client *RedisClient) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *redisStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl)
}
