package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/command"
)

// Thresholds carries the context-usage alert cut-offs as configuration
// rather than literals. Fractions are in [0,1].
type Thresholds struct {
	// High raises a high-severity alert at or above this fraction.
	High float64

	// Critical raises a critical alert at or above this fraction.
	Critical float64
}

// DefaultThresholds returns the stock 0.75 / 0.90 cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.75, Critical: 0.90}
}

// UsageFetcher reports the agent's current context utilization as a
// fraction in [0,1]. The production implementation shells out to the
// agent CLI; tests inject a stub.
type UsageFetcher interface {
	ContextUsage(ctx context.Context) (float64, error)
}

// ContextSource raises an alert when the agent's context window is
// running out: critical at Thresholds.Critical, high at Thresholds.High,
// nothing below that.
type ContextSource struct {
	Fetcher    UsageFetcher
	Thresholds Thresholds

	// now is swappable for tests.
	Now func() time.Time
}

// Name implements Source.
func (s *ContextSource) Name() string { return "context" }

// Alerts implements Source.
func (s *ContextSource) Alerts(ctx context.Context) ([]Alert, error) {
	usage, err := s.Fetcher.ContextUsage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch context usage: %w", err)
	}

	th := s.Thresholds
	if th.High <= 0 && th.Critical <= 0 {
		th = DefaultThresholds()
	}

	var severity Severity
	switch {
	case usage >= th.Critical:
		severity = SeverityCritical
	case usage >= th.High:
		severity = SeverityHigh
	default:
		return nil, nil
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return []Alert{{
		Severity:    severity,
		Title:       fmt.Sprintf("Context usage at %.0f%%", usage*100),
		Source:      s.Name(),
		Description: "agent context window is filling up; compaction or a fresh session may be needed",
		Timestamp:   now(),
		Metadata:    map[string]string{"usage": fmt.Sprintf("%.2f", usage)},
	}}, nil
}

// CLIUsageFetcher reads context usage from the agent CLI's JSON status
// output.
type CLIUsageFetcher struct {
	// Binary is the agent CLI executable.
	Binary string

	// Runner executes the CLI. A nil runner uses a default-timeout one.
	Runner *command.Runner
}

// ContextUsage implements UsageFetcher.
func (f *CLIUsageFetcher) ContextUsage(ctx context.Context) (float64, error) {
	runner := f.Runner
	if runner == nil {
		runner = &command.Runner{}
	}

	out := runner.Run(ctx, f.Binary, "status", "--json")
	if out.Err != nil {
		return 0, fmt.Errorf("%s status: %w", f.Binary, out.Err)
	}

	var payload struct {
		ContextUsage float64 `json:"contextUsage"`
	}
	if err := json.Unmarshal([]byte(out.Stdout), &payload); err != nil {
		return 0, fmt.Errorf("decode status payload: %w", err)
	}
	return payload.ContextUsage, nil
}
