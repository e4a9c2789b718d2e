package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/logging"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the slot under storefront:<key> in Redis, so several
// terminals on different hosts can share one login.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: "storefront:" + key}
}

// NewRedisStoreFromURL parses url, connects and pings.
func NewRedisStoreFromURL(ctx context.Context, url, key string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Store("Connected token store to redis %s", opt.Addr)
	return NewRedisStore(client, key), nil
}

// Load returns the stored token or "".
func (r *RedisStore) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", r.key, err)
	}
	return token, nil
}

// Save writes the token without expiry; the server decides when it stops working.
func (r *RedisStore) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save %s: %v", r.key, err)
		return fmt.Errorf("failed to save %s: %w", r.key, err)
	}
	return nil
}

// Delete removes the token.
func (r *RedisStore) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.key, err)
	}
	return nil
}

// Path is empty: redis slots cannot be watched on disk.
func (r *RedisStore) Path() string { return "" }

// Close closes the client.
func (r *RedisStore) Close() error { return r.client.Close() }
