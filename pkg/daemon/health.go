package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/history"
)

// HealthStatus is the JSON snapshot the daemon writes after each pass.
type HealthStatus struct {
	// Warning is the current degradation banner, empty when healthy.
	Warning string `json:"warning,omitempty"`

	// Collectors maps each collector name to its last outcome.
	Collectors map[string]CollectorHealth `json:"collectors"`

	UpdatedAt time.Time `json:"updated_at"`
}

// CollectorHealth is the per-collector slice of the health snapshot.
type CollectorHealth struct {
	State       string    `json:"state"`
	Error       string    `json:"error,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
	DurationMS  int64     `json:"duration_ms"`
	Retries     int       `json:"retry_count"`

	// Recent summarizes retained observations when history is enabled.
	Recent *history.Summary `json:"recent,omitempty"`
}

// WriteHealthFile writes the health status as indented JSON to path.
// The write is atomic: content goes to a temporary file first, then is
// renamed into place to prevent partial reads.
func WriteHealthFile(path string, status *HealthStatus) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create health directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health status: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp health file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename health file: %w", err)
	}

	return nil
}

// ReadHealthFile reads and parses the health status JSON from path.
func ReadHealthFile(path string) (*HealthStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read health file: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal health file: %w", err)
	}

	return &status, nil
}
