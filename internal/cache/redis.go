package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/glowbook/bookingflow/pkg/logging"
)

// keyPrefix namespaces every entry this system writes so ClearAll can
// never touch unrelated data sharing the Redis instance.
const keyPrefix = "booking_cache:"

// retention bounds how long an entry can linger in Redis regardless of
// read-time TTLs, so abandoned sessions do not accumulate.
const retention = 24 * time.Hour

// RedisStore persists cache entries in Redis under the booking_cache
// namespace. Expiry is still enforced at read time from the entry's
// storedAt stamp; the Redis-level expiration only garbage-collects.
type RedisStore struct {
	client *redis.Client
	logger *logging.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisClock overrides the store's clock for tests.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		s.now = now
	}
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, logger *logging.Logger, opts ...RedisOption) *RedisStore {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &RedisStore{
		client: client,
		logger: logger,
		tracer: otel.Tracer("bookingflow.internal.cache"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Get(ctx context.Context, key Key, ttl time.Duration) ([]byte, bool) {
	ctx, span := s.tracer.Start(ctx, "cache.get")
	defer span.End()

	raw, err := s.client.Get(ctx, keyPrefix+key.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.RecordError(err)
			s.logger.Debug("cache read failed", "key", key.String(), "error", err)
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.logger.Warn("dropping corrupt cache entry", "key", key.String(), "error", err)
		s.Remove(ctx, key)
		return nil, false
	}
	if e.expired(s.now(), ttl) {
		s.Remove(ctx, key)
		return nil, false
	}
	return e.Data, true
}

func (s *RedisStore) Set(ctx context.Context, key Key, value []byte) {
	ctx, span := s.tracer.Start(ctx, "cache.set")
	defer span.End()

	raw, err := json.Marshal(entry{Data: value, StoredAt: s.now()})
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, keyPrefix+key.String(), raw, retention).Err(); err != nil {
		span.RecordError(err)
		s.logger.Debug("cache write dropped", "key", key.String(), "error", err)
	}
}

func (s *RedisStore) Remove(ctx context.Context, key Key) {
	if err := s.client.Del(ctx, keyPrefix+key.String()).Err(); err != nil {
		s.logger.Debug("cache delete failed", "key", key.String(), "error", err)
	}
}

func (s *RedisStore) ClearAll(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "cache.clear_all")
	defer span.End()

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Debug("cache clear delete failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("cache clear scan failed", "error", err)
	}
}
