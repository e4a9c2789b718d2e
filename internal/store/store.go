// Package store persists the session token slot: the single key/value pair that
// survives restarts and decides authenticated-vs-anonymous at startup.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/config"
)

// DefaultKey is the well-known slot name for the bearer token.
const DefaultKey = "token"

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown session backend")

// TokenStore is a persistent single-slot token holder.
// Load returns "" with a nil error when the slot is empty.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
	// Path is the file backing the slot, or "" when it is not file-backed.
	Path() string
	Close() error
}

// Open builds the TokenStore selected by cfg.
func Open(ctx context.Context, cfg config.SessionConfig) (TokenStore, error) {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	switch cfg.Backend {
	case config.BackendSQLite, "":
		return NewSQLiteStore(cfg.Path, key)
	case config.BackendFile:
		return NewFileStore(cfg.Path, key), nil
	case config.BackendRedis:
		return NewRedisStoreFromURL(ctx, cfg.RedisURL, key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

// MemoryStore keeps the slot in process memory. Nothing survives a restart;
// tests use it in place of a persistent backend.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore creates a MemoryStore seeded with token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func (m *MemoryStore) Path() string { return "" }
func (m *MemoryStore) Close() error { return nil }
