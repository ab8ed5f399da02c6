package collectors

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry tracks a set of named collectors plus the last Result and last
// success time for each. It is safe for concurrent use; the baseline
// refresh loop is sequential, but the locking preserves the monotonic
// last-success invariant under a future concurrent scheduler.
type Registry struct {
	mu          sync.RWMutex
	collectors  map[string]Collector
	lastResult  map[string]Result
	lastSuccess map[string]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewRegistry returns an empty registry ready for collector registration.
func NewRegistry() *Registry {
	return &Registry{
		collectors:  make(map[string]Collector),
		lastResult:  make(map[string]Result),
		lastSuccess: make(map[string]time.Time),
		now:         time.Now,
	}
}

// Register adds a collector to the registry. It returns an error if a
// collector with the same name is already registered.
func (r *Registry) Register(c Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.collectors[name]; exists {
		return fmt.Errorf("collector %q already registered", name)
	}
	r.collectors[name] = c
	return nil
}

// Get returns the collector with the given name, or false if not found.
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collectors[name]
	return c, ok
}

// Names returns a sorted slice of all registered collector names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Update stores res as the last result for name. The last-success time
// advances only when res.State is StateOK, and only forward: an OK result
// stamped earlier than the recorded success is kept as data but does not
// move the success clock backwards.
func (r *Registry) Update(name string, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastResult[name] = res
	if res.State == StateOK && res.CollectedAt.After(r.lastSuccess[name]) {
		r.lastSuccess[name] = res.CollectedAt
	}
}

// Last returns the most recent Result stored for name, or false when the
// collector has never reported.
func (r *Registry) Last(name string) (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.lastResult[name]
	return res, ok
}

// LastSuccess returns the time of the most recent OK result for name, or
// false when it has never succeeded.
func (r *Registry) LastSuccess(name string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.lastSuccess[name]
	return t, ok
}

// IsStale reports whether name has never succeeded or its last success is
// older than maxAge.
func (r *Registry) IsStale(name string, maxAge time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.lastSuccess[name]
	if !ok {
		return true
	}
	return r.now().Sub(t) > maxAge
}

// Snapshot returns a copy of every stored result keyed by collector name.
// Consumers (health file, one-shot output) read this between cycles.
func (r *Registry) Snapshot() map[string]Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[string]Result, len(r.lastResult))
	for name, res := range r.lastResult {
		snap[name] = res
	}
	return snap
}
