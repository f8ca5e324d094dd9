package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Entries are never evicted except by TTL
// expiry on read or an explicit Clear; the key space is a small fixed brand
// set, so unbounded growth is not a concern.
type MemoryStore[T any] struct {
	clock   Clock
	mu      sync.Mutex
	entries map[string]*memoryEntry[T]
}

type memoryEntry[T any] struct {
	value     T
	err       error
	fetchedAt time.Time
	ready     chan struct{}
}

// Ensure MemoryStore implements Store
var _ Store[int] = (*MemoryStore[int])(nil)

// NewMemoryStore creates an empty store using the given clock.
func NewMemoryStore[T any](clock Clock) *MemoryStore[T] {
	if clock == nil {
		clock = SystemClock()
	}
	return &MemoryStore[T]{
		clock:   clock,
		entries: make(map[string]*memoryEntry[T]),
	}
}

// GetOrCompute returns the fresh cached value for key or computes a new one.
// Concurrent misses on the same key share a single in-flight producer call.
// Failed computations are not cached.
func (s *MemoryStore[T]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, produce Producer[T]) (T, error) {
	for {
		s.mu.Lock()
		e, ok := s.entries[key]
		if !ok {
			e = &memoryEntry[T]{ready: make(chan struct{})}
			s.entries[key] = e
			s.mu.Unlock()

			e.value, e.err = produce(ctx)
			e.fetchedAt = s.clock.Now()
			if e.err != nil {
				s.evict(key, e)
			}
			close(e.ready)
			return e.value, e.err
		}
		s.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}

		if e.err == nil && s.clock.Now().Sub(e.fetchedAt) < ttl {
			return e.value, nil
		}

		// Entry is stale; drop it and race to recompute.
		s.evict(key, e)
	}
}

// evict removes the entry for key only if it is still the one we saw, so a
// concurrent recomputation is never discarded.
func (s *MemoryStore[T]) evict(key string, e *memoryEntry[T]) {
	s.mu.Lock()
	if s.entries[key] == e {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}

// Clear removes all entries unconditionally.
func (s *MemoryStore[T]) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*memoryEntry[T])
	s.mu.Unlock()
	return nil
}

// Len reports the number of cached entries. Used by tests.
func (s *MemoryStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
