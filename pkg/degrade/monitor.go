// Package degrade derives a single human-readable warning line from the
// collector registry. Consumers show at most this one banner instead of
// per-panel errors; an empty warning means everything is healthy.
package degrade

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/collectors"
)

// maxListedNames caps how many collector names a warning spells out.
const maxListedNames = 3

// Monitor classifies the monitored collectors into degradation buckets
// and renders the highest-priority one as a warning. It is a pure reader
// of the registry; the daemon invokes Check once per refresh pass.
type Monitor struct {
	// Registry is the store the daemon updates each cycle.
	Registry *collectors.Registry

	// Monitored is the fixed list of collector names to watch.
	Monitored []string

	// MaxAge is the freshness window for the stale bucket.
	MaxAge time.Duration

	// GatewayName singles out the collector that gets a dedicated
	// failure message. Empty means "gateway".
	GatewayName string
}

// Check inspects the registry and returns the current warning line, or
// the empty string when no monitored collector is degraded. Priority:
// circuit-open beats errors, errors beat staleness.
func (m *Monitor) Check() string {
	gateway := m.GatewayName
	if gateway == "" {
		gateway = "gateway"
	}

	var circuitOpen, failed, stale []string

	for _, name := range m.Monitored {
		res, ok := m.Registry.Last(name)
		switch {
		case ok && isCircuitOpen(res):
			circuitOpen = append(circuitOpen, name)
		case ok && !res.OK():
			failed = append(failed, name)
		case m.Registry.IsStale(name, m.MaxAge):
			stale = append(stale, name)
		}
	}

	switch {
	case len(circuitOpen) > 0:
		return fmt.Sprintf("collectors suspended (circuit open): %s", listNames(circuitOpen))
	case len(failed) > 0:
		for _, name := range failed {
			if name == gateway {
				return "gateway not responding; status data may be outdated"
			}
		}
		return fmt.Sprintf("collectors failing: %s", listNames(failed))
	case len(stale) > 0:
		return fmt.Sprintf("stale data from: %s", listNames(stale))
	default:
		return ""
	}
}

// isCircuitOpen reads the circuit-open flag a collector may set on its
// record after repeated consecutive failures.
func isCircuitOpen(res collectors.Result) bool {
	open, _ := res.Data["circuit_open"].(bool)
	return open
}

// listNames renders at most maxListedNames names, with a "+N more"
// suffix for the remainder.
func listNames(names []string) string {
	if len(names) <= maxListedNames {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s +%d more",
		strings.Join(names[:maxListedNames], ", "), len(names)-maxListedNames)
}
