package kvstore

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// MemoryStore keeps entries in process memory. Expired entries are evicted
// when they are read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expires.Equal(e.expires) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len counts stored entries, expired ones included until they are read.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
