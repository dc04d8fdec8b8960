package payloadcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each tab as one hash so a tab clear is a single DEL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. ttl is the idle lifetime of a tab.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func tabKey(tab string) string {
	return "payload:" + tab
}

func (s *RedisStore) Put(ctx context.Context, tab, key string, value []byte) error {
	if tab == "" {
		return ErrNoTab
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, tabKey(tab), key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, tabKey(tab), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, tab, key string) ([]byte, bool, error) {
	if tab == "" {
		return nil, false, ErrNoTab
	}
	v, err := s.client.HGet(ctx, tabKey(tab), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (s *RedisStore) Clear(ctx context.Context, tab string) error {
	if tab == "" {
		return ErrNoTab
	}
	if err := s.client.Del(ctx, tabKey(tab)).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
