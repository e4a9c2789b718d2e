package store

import (
	"context"
	"errors"
	"os"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"storefront/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(t *testing.T) TokenStore {
	return map[string]func(t *testing.T) TokenStore{
		"sqlite": func(t *testing.T) TokenStore {
			s, err := NewSQLiteStore(":memory:", DefaultKey)
			require.NoError(t, err)
			return s
		},
		"file": func(t *testing.T) TokenStore {
			return NewFileStore(filepath.Join(t.TempDir(), "session.yaml"), DefaultKey)
		},
		"redis": func(t *testing.T) TokenStore {
			mr := miniredis.RunT(t)
			return NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), DefaultKey)
		},
		"memory": func(t *testing.T) TokenStore {
			return NewMemoryStore("")
		},
	}
}

func TestTokenStore_Lifecycle(t *testing.T) {
	ctx := context.Background()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			token, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, token, "fresh slot must be empty")

			require.NoError(t, s.Save(ctx, "T1"))
			token, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "T1", token)

			require.NoError(t, s.Save(ctx, "T2"))
			token, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "T2", token)

			require.NoError(t, s.Delete(ctx))
			token, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, token)

			// Deleting an empty slot is fine.
			require.NoError(t, s.Delete(ctx))
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	s, err := NewSQLiteStore(path, DefaultKey)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "persisted"))
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(path, DefaultKey)
	require.NoError(t, err)
	defer s2.Close()

	token, err := s2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
}

func TestFileStore_PreservesOtherKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("theme: dark\n"), 0600))

	s := NewFileStore(path, DefaultKey)
	require.NoError(t, s.Save(ctx, "T1"))
	require.NoError(t, s.Delete(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "theme: dark")
	assert.NotContains(t, string(data), "T1")
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0600))

	_, err := NewFileStore(path, DefaultKey).Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "token")
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), "T9"))
	got, err := mr.Get("storefront:token")
	require.NoError(t, err)
	assert.Equal(t, "T9", got)
	assert.Empty(t, s.Path())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Save(ctx, fmt.Sprintf("T%d", i)))
			_, err := s.Load(ctx)
			assert.NoError(t, err)
			assert.NoError(t, s.Delete(ctx))
		}(i)
	}
	wg.Wait()

	require.NoError(t, s.Save(ctx, "final"))
	token, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "final", token)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, config.SessionConfig{Backend: config.BackendFile, Path: filepath.Join(dir, "s.yaml")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, config.SessionConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "s.db"), Key: "token"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	mr := miniredis.RunT(t)
	s, err = Open(ctx, config.SessionConfig{Backend: config.BackendRedis, RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	s.Close()

	_, err = Open(ctx, config.SessionConfig{Backend: "etcd"})
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}
