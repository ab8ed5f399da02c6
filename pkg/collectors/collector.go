// Package collectors defines the result envelope, state taxonomy, and
// registry for agent-pulse data collectors. Each collector (gateway,
// hostmetrics, update) implements the Collector interface and is driven
// by the daemon refresh loop, which stores every outcome in the Registry
// for downstream consumers (degradation monitor, health file, alerts).
package collectors

import (
	"context"
	"time"
)

// State classifies the outcome of a single collection cycle.
type State int

const (
	// StateOK means the source produced usable data.
	StateOK State = iota

	// StateError means the source ran but failed (nonzero exit,
	// malformed payload, permission denied).
	StateError

	// StateTimeout means the source exceeded its deadline and was killed.
	StateTimeout

	// StateUnavailable means the source executable could not be found.
	StateUnavailable

	// StateStale means the last good data is older than the freshness
	// window. Assigned at the aggregate level, never by a collector.
	StateStale
)

var stateNames = map[State]string{
	StateOK:          "ok",
	StateError:       "error",
	StateTimeout:     "timeout",
	StateUnavailable: "unavailable",
	StateStale:       "stale",
}

// String returns the lowercase wire name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so a State serializes as
// its string form inside JSON records.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Collector is the interface all data sources implement. Implementations
// live in sub-packages (e.g., pkg/collectors/gateway) and are handed to
// the daemon loop at startup.
type Collector interface {
	// Name returns a unique identifier for this collector (e.g., "gateway").
	Name() string

	// Collect performs one collection cycle and returns a key-value
	// record. Keys are stable snake_case strings suitable for JSON.
	Collect(ctx context.Context) (map[string]any, error)

	// Interval returns how often this collector should run.
	Interval() time.Duration

	// Timeout returns the per-call deadline for one Collect invocation.
	Timeout() time.Duration
}
