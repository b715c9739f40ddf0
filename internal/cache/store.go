// Package cache provides the time-bounded key/value store shared by the
// availability resolver, the catalog gateway and the preloader. Entries
// record when they were stored; the TTL for a read is supplied by the
// caller per data class, never persisted with the entry.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// TTLs per data class. Catalog data uses a zero TTL so lists of categories
// and services are always confirmed fresh against the provider.
const (
	CatalogTTL      = time.Duration(0)
	StaffTTL        = 10 * time.Minute
	AvailabilityTTL = 2 * time.Minute
)

// Store is the injected cache abstraction. Writes never fail the caller:
// a backend that cannot persist drops the write and the consumer proceeds
// uncached. Get deletes entries it finds expired or unparsable.
type Store interface {
	// Get returns the cached payload for key if it is younger than ttl.
	Get(ctx context.Context, key Key, ttl time.Duration) ([]byte, bool)
	// Set stores the payload under key, stamped with the current time.
	Set(ctx context.Context, key Key, value []byte)
	// Remove deletes a single entry.
	Remove(ctx context.Context, key Key)
	// ClearAll removes every entry under this store's namespace prefix,
	// leaving unrelated data in the backend untouched.
	ClearAll(ctx context.Context)
}

// entry is the persisted envelope. Data stays raw so the store does not
// need to know the caller's type.
type entry struct {
	Data     json.RawMessage `json:"data"`
	StoredAt time.Time       `json:"storedAt"`
}

func (e entry) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) > ttl
}

// GetJSON reads and decodes a typed value from the store. A decode failure
// counts as a miss; the store has already discarded the corrupt entry by
// the time Get reports it.
func GetJSON[T any](ctx context.Context, s Store, key Key, ttl time.Duration) (T, bool) {
	var v T
	raw, ok := s.Get(ctx, key, ttl)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		s.Remove(ctx, key)
		var zero T
		return zero, false
	}
	return v, true
}

// SetJSON encodes and stores a typed value. Encoding failures are dropped,
// matching the write-never-fails contract.
func SetJSON[T any](ctx context.Context, s Store, key Key, v T) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.Set(ctx, key, raw)
}
