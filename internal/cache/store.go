package cache

import (
	"context"
	"time"
)

// Clock abstracts time for deterministic TTL behavior in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Producer computes the value to cache on a miss.
type Producer[T any] func(ctx context.Context) (T, error)

// Store is a time-bounded memoization layer. GetOrCompute returns the cached
// value for key while its entry is younger than ttl, and otherwise invokes
// produce exactly once per miss, even under concurrent callers.
type Store[T any] interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, produce Producer[T]) (T, error)
	Clear(ctx context.Context) error
}
