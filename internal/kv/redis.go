package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"varshgpt/internal/config"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps preferences in Redis so they survive restarts and can be
// shared by multiple frontends.
type RedisStore struct {
	inner *redis.Client
}

// NewRedisStore creates the redis-backed store from app config and verifies
// connectivity with a short ping.
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	host := cfg.Redis.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Redis.Port
	if port == 0 {
		port = 6379
	}

	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisStore{inner: client}, nil
}

// NewRedisStoreFromClient wraps an existing go-redis client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{inner: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.inner.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.inner.Del(ctx, key).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	if s == nil || s.inner == nil {
		return nil
	}
	return s.inner.Close()
}
