// Package cache memoizes collector output for a bounded time window.
// Each collector owns an independent Memo; there is no shared keyspace,
// so a broken collector can never poison another's cache slot. State is
// purely in-memory; nothing in this system persists across restarts.
package cache

import (
	"context"
	"sync"
	"time"
)

// Stats holds runtime counters for a Memo.
type Stats struct {
	// Hits counts calls served from the cached value.
	Hits int64

	// Misses counts calls that invoked the wrapped function.
	Misses int64

	// Errors counts wrapped invocations that failed.
	Errors int64
}

// Memo caches the result of a fallible call for a time-to-live window.
// It is safe for concurrent use.
//
// Failure policy: when a refresh fails, Get serves the previous
// successfully cached value if one exists, otherwise the configured
// fallback. The stored timestamp is never advanced on failure, so the
// next call retries immediately instead of waiting out the TTL.
type Memo[T any] struct {
	ttl      time.Duration
	fallback T

	mu       sync.Mutex
	value    T
	storedAt time.Time
	hasValue bool
	stats    Stats

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Memo with the given TTL and fallback value. The fallback
// is returned by Get when a refresh fails before any call has succeeded.
func New[T any](ttl time.Duration, fallback T) *Memo[T] {
	return &Memo[T]{
		ttl:      ttl,
		fallback: fallback,
		now:      time.Now,
	}
}

// Get returns the cached value when it is still fresh; otherwise it
// invokes fn. A successful invocation stores the value and resets the
// TTL window. A failed invocation returns the previous cached value (or
// the fallback when none exists) together with fn's error, leaving the
// stored timestamp untouched.
func (m *Memo[T]) Get(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasValue && m.now().Sub(m.storedAt) <= m.ttl {
		m.stats.Hits++
		return m.value, nil
	}

	m.stats.Misses++
	v, err := fn(ctx)
	if err != nil {
		m.stats.Errors++
		if m.hasValue {
			return m.value, err
		}
		return m.fallback, err
	}

	m.value = v
	m.storedAt = m.now()
	m.hasValue = true
	return v, nil
}

// Invalidate discards the cached value so the next Get re-invokes the
// wrapped function.
func (m *Memo[T]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	m.value = zero
	m.hasValue = false
	m.storedAt = time.Time{}
}

// Stats returns a snapshot of the memo's counters.
func (m *Memo[T]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
