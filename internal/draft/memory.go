package draft

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory draft store for single-instance deployments.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string]*memoryEntry
}

type memoryEntry struct {
	payload   string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked(time.Now())

	entry, ok := s.drafts[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.payload, true
}

func (s *MemoryStore) Set(_ context.Context, key string, payload string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupExpiredLocked(time.Now())

	s.drafts[key] = &memoryEntry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
}

func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, key)
}

func (s *MemoryStore) cleanupExpiredLocked(now time.Time) {
	for key, entry := range s.drafts {
		if now.After(entry.expiresAt) {
			delete(s.drafts, key)
		}
	}
}

func (s *MemoryStore) Close() error {
	return nil
}
