// Package alerts merges severity-tagged alerts from multiple sources into
// a single sorted report. Sources are isolated from one another: a source
// that errors (or panics) is skipped and recorded, never allowed to blank
// the rest of the signal.
package alerts

import (
	"time"
)

// Severity orders alerts from most to least urgent. Lower ordinal sorts
// first.
type Severity int

const (
	SeverityCritical Severity = iota + 1
	SeverityHigh
	SeverityMedium
	SeverityLow
	SeverityInfo
)

var severityNames = map[Severity]string{
	SeverityCritical: "critical",
	SeverityHigh:     "high",
	SeverityMedium:   "medium",
	SeverityLow:      "low",
	SeverityInfo:     "info",
}

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so severities serialize
// as their names, including as JSON map keys in the report summary.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Alert is a single severity-tagged finding. Alerts are created fresh
// each refresh cycle and are immutable once produced.
type Alert struct {
	Severity    Severity          `json:"severity"`
	Title       string            `json:"title"`
	Source      string            `json:"source"`
	Description string            `json:"description,omitempty"`
	URL         string            `json:"url,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Report is the merged output of one aggregation pass.
type Report struct {
	// Alerts is non-decreasing in severity ordinal.
	Alerts []Alert `json:"alerts"`

	// Summary counts alerts per severity; all five keys are always
	// present, zero-filled when absent.
	Summary map[Severity]int `json:"summary"`

	// Total is len(Alerts).
	Total int `json:"total"`

	// SourceErrors maps the name of each failed source to its error
	// text. Healthy sources never appear here.
	SourceErrors map[string]string `json:"source_errors,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}
