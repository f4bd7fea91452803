package quota

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore stores keys in Redis, optionally under a common prefix.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set implements Store. Values never expire.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}
