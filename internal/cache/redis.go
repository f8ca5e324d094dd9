package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore is a Store backed by Redis, for deployments where several
// replicas should share one cache. Values are stored as JSON envelopes that
// carry their fetch time, so freshness is judged against the injected clock
// rather than trusting the server-side expiry alone.
type RedisStore[T any] struct {
	client *redis.Client
	clock  Clock
	prefix string

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

type redisEnvelope[T any] struct {
	FetchedAt time.Time `json:"fetched_at"`
	Value     T         `json:"value"`
}

// Ensure RedisStore implements Store
var _ Store[int] = (*RedisStore[int])(nil)

// NewRedisStore creates a Store on an existing Redis client. All keys are
// namespaced under prefix.
func NewRedisStore[T any](client *redis.Client, clock Clock, prefix string) *RedisStore[T] {
	if clock == nil {
		clock = SystemClock()
	}
	return &RedisStore[T]{
		client:   client,
		clock:    clock,
		prefix:   prefix,
		inflight: make(map[string]*sync.Mutex),
	}
}

func (s *RedisStore[T]) redisKey(key string) string {
	return s.prefix + ":" + key
}

// GetOrCompute returns the fresh cached value for key or computes a new one.
// The at-most-one-producer guarantee is per process; cross-replica duplicate
// fetches are tolerated since producers are idempotent reads.
func (s *RedisStore[T]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, produce Producer[T]) (T, error) {
	if value, ok := s.lookup(ctx, key, ttl); ok {
		return value, nil
	}

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have filled the entry while we waited on the lock.
	if value, ok := s.lookup(ctx, key, ttl); ok {
		return value, nil
	}

	value, err := s.compute(ctx, key, ttl, produce)
	if err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

func (s *RedisStore[T]) lookup(ctx context.Context, key string, ttl time.Duration) (T, bool) {
	var zero T

	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.Errorf("Redis cache read for %q failed: %v", key, err)
		}
		return zero, false
	}

	var envelope redisEnvelope[T]
	if err := json.Unmarshal(data, &envelope); err != nil {
		logrus.Errorf("Redis cache entry for %q is corrupt: %v", key, err)
		return zero, false
	}

	if s.clock.Now().Sub(envelope.FetchedAt) >= ttl {
		return zero, false
	}

	return envelope.Value, true
}

func (s *RedisStore[T]) compute(ctx context.Context, key string, ttl time.Duration, produce Producer[T]) (T, error) {
	value, err := produce(ctx)
	if err != nil {
		return value, err
	}

	envelope := redisEnvelope[T]{
		FetchedAt: s.clock.Now(),
		Value:     value,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return value, fmt.Errorf("failed to encode cache entry for %q: %w", key, err)
	}

	// Server-side expiry is hygiene only; freshness is decided on read.
	if err := s.client.Set(ctx, s.redisKey(key), data, ttl).Err(); err != nil {
		logrus.Errorf("Redis cache write for %q failed: %v", key, err)
	}

	return value, nil
}

func (s *RedisStore[T]) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.inflight[key]
	if !ok {
		lock = &sync.Mutex{}
		s.inflight[key] = lock
	}
	return lock
}

// Clear removes every entry under this store's prefix.
func (s *RedisStore[T]) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	logrus.Debugf("Cleared %d cached entries under %s", len(keys), s.prefix)
	return nil
}
