package collectors

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockCollector implements Collector for testing. All fields are
// configurable and it tracks how many times Collect has been called.
type MockCollector struct {
	name     string
	interval time.Duration
	timeout  time.Duration

	mu        sync.RWMutex
	data      map[string]any
	err       error
	callCount atomic.Int64

	// CollectFunc, if set, overrides the default Collect behavior.
	// Tests use this to inject dynamic behavior (different data per
	// call, blocking until a signal, panicking).
	CollectFunc func(ctx context.Context) (map[string]any, error)
}

// MockCollectorOption configures a MockCollector.
type MockCollectorOption func(*MockCollector)

// WithData sets the record returned by Collect.
func WithData(data map[string]any) MockCollectorOption {
	return func(m *MockCollector) { m.data = data }
}

// WithError sets the error returned by Collect.
func WithError(err error) MockCollectorOption {
	return func(m *MockCollector) { m.err = err }
}

// WithTimeout sets the per-call timeout reported by the mock.
func WithTimeout(d time.Duration) MockCollectorOption {
	return func(m *MockCollector) { m.timeout = d }
}

// WithCollectFunc sets a custom function for Collect.
func WithCollectFunc(fn func(ctx context.Context) (map[string]any, error)) MockCollectorOption {
	return func(m *MockCollector) { m.CollectFunc = fn }
}

// NewMockCollector creates a mock collector with the given name, interval,
// and options.
func NewMockCollector(name string, interval time.Duration, opts ...MockCollectorOption) *MockCollector {
	m := &MockCollector{
		name:     name,
		interval: interval,
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the collector name.
func (m *MockCollector) Name() string { return m.name }

// Interval returns the configured collection interval.
func (m *MockCollector) Interval() time.Duration { return m.interval }

// Timeout returns the configured per-call timeout.
func (m *MockCollector) Timeout() time.Duration { return m.timeout }

// SetData updates the returned record (thread-safe).
func (m *MockCollector) SetData(data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// SetError updates the returned error (thread-safe).
func (m *MockCollector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Collect performs a mock collection. It increments the call counter and
// returns the configured record and error, or delegates to CollectFunc
// if set.
func (m *MockCollector) Collect(ctx context.Context) (map[string]any, error) {
	m.callCount.Add(1)

	if m.CollectFunc != nil {
		return m.CollectFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data, m.err
}

// CallCount returns how many times Collect has been called.
func (m *MockCollector) CallCount() int64 {
	return m.callCount.Load()
}
