package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-process Store. It backs tests and
// deployments that run without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the store's clock. Tests use it to advance
// time past a TTL without sleeping.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string][]byte),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key Key, ttl time.Duration) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.entries[key.String()]
	if !ok {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		delete(s.entries, key.String())
		return nil, false
	}
	if e.expired(s.now(), ttl) {
		delete(s.entries, key.String())
		return nil, false
	}
	return e.Data, true
}

func (s *MemoryStore) Set(_ context.Context, key Key, value []byte) {
	raw, err := json.Marshal(entry{Data: value, StoredAt: s.now()})
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.String()] = raw
}

func (s *MemoryStore) Remove(_ context.Context, key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
}

func (s *MemoryStore) ClearAll(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]byte)
}

// Len reports the number of live entries, expired or not. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
