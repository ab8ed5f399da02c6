package collectors

import (
	"time"
)

// Result is the normalized envelope for one collection outcome. Results
// are created fresh each refresh cycle and never mutated afterwards; the
// Registry holds the latest one per collector.
type Result struct {
	// Data is the key-value record produced by the collector. Empty
	// (never nil after normalization) on failure.
	Data map[string]any `json:"data"`

	// State classifies the outcome.
	State State `json:"state"`

	// Err carries the failure message when State != StateOK.
	Err string `json:"error,omitempty"`

	// ErrType names the failure class ("timeout", "not_found",
	// "exit_error", ...) for machine consumers.
	ErrType string `json:"error_type,omitempty"`

	// CollectedAt is when the collection finished.
	CollectedAt time.Time `json:"collected_at"`

	// Duration is how long the collection took.
	Duration time.Duration `json:"duration"`

	// Retries is how many extra attempts were spent beyond the first.
	Retries int `json:"retry_count"`
}

// OK reports whether the result carries usable data.
func (r Result) OK() bool { return r.State == StateOK }

// OKResult builds a successful Result stamped at the given time.
func OKResult(data map[string]any, at time.Time, took time.Duration) Result {
	if data == nil {
		data = map[string]any{}
	}
	return Result{
		Data:        data,
		State:       StateOK,
		CollectedAt: at,
		Duration:    took,
	}
}

// FailedResult builds a failure Result with the given state and message.
func FailedResult(state State, errMsg, errType string, at time.Time, took time.Duration) Result {
	return Result{
		Data:        map[string]any{},
		State:       state,
		Err:         errMsg,
		ErrType:     errType,
		CollectedAt: at,
		Duration:    took,
	}
}

// Record returns the JSON-ready map form of the result. It always
// contains "collected_at" (RFC3339) and "state"; failures additionally
// carry "error" and "_error_type". The collector's own keys are merged
// in without overwriting the envelope keys.
func (r Result) Record() map[string]any {
	rec := make(map[string]any, len(r.Data)+4)
	for k, v := range r.Data {
		rec[k] = v
	}
	rec["collected_at"] = r.CollectedAt.UTC().Format(time.RFC3339)
	rec["state"] = r.State.String()
	if r.State != StateOK {
		rec["error"] = r.Err
		rec["_error_type"] = r.ErrType
	}
	return rec
}
