package cache

import (
	"sync"
	"time"
)

// Store is a keyed value store with per-entry time-to-live. The in-memory
// implementation below is enough for a single instance; a shared cache can
// stand behind the same interface when the service scales out.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
}

type entry struct {
	value  any
	expiry time.Time
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() Store {
	return &memoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewMemoryStoreWithClock lets tests control expiry.
func NewMemoryStoreWithClock(now func() time.Time) Store {
	return &memoryStore{
		entries: make(map[string]entry),
		now:     now,
	}
}

func (s *memoryStore) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	// expired entries are purged lazily on lookup
	if s.now().After(e.expiry) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expiry.Equal(e.expiry) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

func (s *memoryStore) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = entry{
		value:  value,
		expiry: s.now().Add(ttl),
	}
	s.mu.Unlock()
}

func (s *memoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}
