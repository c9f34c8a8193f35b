package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const slotNamespace = "cartsync:slot"

type kvStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSlot keeps a profile's keys in redis so several headless clients on
// different hosts can share one "browser".
type RedisSlot struct {
	store   kvStore
	profile string
	timeout time.Duration
}

func NewRedisSlot(client *redis.Client, profile string, timeout time.Duration) *RedisSlot {
	return newRedisSlot(client, profile, timeout)
}

func newRedisSlot(store kvStore, profile string, timeout time.Duration) *RedisSlot {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if profile == "" {
		profile = "default"
	}
	return &RedisSlot{store: store, profile: profile, timeout: timeout}
}

func (s *RedisSlot) key(k string) string {
	return fmt.Sprintf("%s:%s:%s", slotNamespace, s.profile, k)
}

func (s *RedisSlot) Load(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	v, err := s.store.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisSlot) Save(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.store.Set(ctx, s.key(key), value, 0).Err()
}

func (s *RedisSlot) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.store.Del(ctx, s.key(key)).Err()
}
