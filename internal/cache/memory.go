package cache

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNotFound is returned when a key is absent or its TTL has lapsed.
var ErrNotFound = errors.New("key not found")

// memoryCacheSize caps the number of live entries. Processed transaction
// ids are small and expire within a day, so eviction under pressure only
// risks re-verifying an already-settled payment, which is safe.
const memoryCacheSize = 10_000

// MemoryProvider is a single-process provider for development and tests.
// Entries do not survive a restart, so a restarted server may re-verify
// transactions it had already settled.
type MemoryProvider struct {
	cache *lru.Cache[string, entry]
}

type entry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryProvider() (*MemoryProvider, error) {
	c, err := lru.New[string, entry](memoryCacheSize)
	if err != nil {
		return nil, err
	}
	return &MemoryProvider{cache: c}, nil
}

func (m *MemoryProvider) Get(ctx context.Context, key string) (string, error) {
	_ = ctx
	cached, exists := m.cache.Get(key)
	if !exists {
		return "", ErrNotFound
	}

	// The LRU has no native expiry; stale entries are dropped on read.
	if time.Now().After(cached.expiresAt) {
		m.cache.Remove(key)
		return "", ErrNotFound
	}

	return cached.value, nil
}

func (m *MemoryProvider) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	_ = ctx
	m.cache.Add(key, entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (m *MemoryProvider) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.cache.Remove(key)
	return nil
}

func (m *MemoryProvider) Close() error {
	return nil
}
