// Package daemon drives the refresh cycle: a periodic tick runs one
// synchronous pass over all collectors, stores each classified outcome in
// the registry, derives the degradation warning, and writes the health
// snapshot. Collectors run sequentially within a pass; one broken source
// can never hang or abort the loop.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/collectors"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/command"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/degrade"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/history"
)

// circuitThreshold is how many consecutive failures flag a collector's
// record as circuit-open for the degradation monitor.
const circuitThreshold = 5

// retrier is implemented by collectors that spend extra attempts
// internally; the loop folds the count into the stored result.
type retrier interface {
	LastRetries() int
}

// Loop owns one refresh cycle per tick.
type Loop struct {
	// Interval between refresh passes (30s daemon, 5s watch).
	Interval time.Duration

	// Registry receives every collector outcome.
	Registry *collectors.Registry

	// Monitor derives the warning line after each pass. Optional.
	Monitor *degrade.Monitor

	// History, when set, receives one observation per collection so
	// recent error rates and latencies can be reported. Optional.
	History *history.Log

	// HealthPath, when non-empty, receives a JSON snapshot after each
	// pass.
	HealthPath string

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnPass, when set, is called after each completed pass with the
	// current warning line. One-shot and watch output hang off this.
	OnPass func(warning string)

	failures map[string]int
	lastRun  map[string]time.Time
}

// Run executes refresh passes until ctx is cancelled. The first pass
// starts immediately.
func (l *Loop) Run(ctx context.Context) error {
	if l.Interval <= 0 {
		return fmt.Errorf("daemon: non-positive interval %v", l.Interval)
	}

	l.RunOnce(ctx)

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single synchronous pass over all collectors and
// returns the resulting warning line.
func (l *Loop) RunOnce(ctx context.Context) string {
	if l.failures == nil {
		l.failures = make(map[string]int)
	}
	if l.lastRun == nil {
		l.lastRun = make(map[string]time.Time)
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := time.Now()
	for _, name := range l.Registry.Names() {
		c, ok := l.Registry.Get(name)
		if !ok {
			continue
		}
		// Respect each collector's own cadence within the shared tick.
		if last, ran := l.lastRun[name]; ran && now.Sub(last) < c.Interval() {
			continue
		}
		l.lastRun[name] = now

		res := l.collectOne(ctx, c)
		l.Registry.Update(c.Name(), res)
		if l.History != nil {
			l.History.Record(c.Name(), res.CollectedAt, res.Duration, res.OK())
		}

		if res.OK() {
			l.failures[c.Name()] = 0
			logger.Debug("collected", "collector", c.Name(), "duration", res.Duration)
		} else {
			l.failures[c.Name()]++
			logger.Warn("collection failed",
				"collector", c.Name(),
				"state", res.State.String(),
				"error", res.Err,
				"consecutive", l.failures[c.Name()])
		}
	}

	if l.History != nil {
		l.History.Prune()
	}

	warning := ""
	if l.Monitor != nil {
		warning = l.Monitor.Check()
	}

	if l.HealthPath != "" {
		if err := WriteHealthFile(l.HealthPath, l.buildHealth(warning)); err != nil {
			logger.Warn("health file write failed", "path", l.HealthPath, "error", err)
		}
	}

	if l.OnPass != nil {
		l.OnPass(warning)
	}
	return warning
}

// collectOne runs a single collector under its own deadline. Error
// returns and panics both come back as complete classified Results.
func (l *Loop) collectOne(ctx context.Context, c collectors.Collector) (res collectors.Result) {
	timeout := c.Timeout()
	if timeout <= 0 {
		timeout = command.DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = collectors.FailedResult(
				collectors.StateError,
				fmt.Sprintf("collector panicked: %v", r),
				"panic",
				time.Now(), time.Since(start))
			l.flagCircuit(c.Name(), &res)
		}
	}()

	data, err := c.Collect(cctx)
	took := time.Since(start)

	if err != nil {
		state, errType := command.StateOf(err)
		res = collectors.FailedResult(state, err.Error(), errType, time.Now(), took)
		if r, ok := c.(retrier); ok {
			res.Retries = r.LastRetries()
		}
		l.flagCircuit(c.Name(), &res)
		return res
	}

	res = collectors.OKResult(data, time.Now(), took)
	if r, ok := c.(retrier); ok {
		res.Retries = r.LastRetries()
	}
	return res
}

// flagCircuit marks the failure record once the collector has failed
// circuitThreshold times in a row. The count includes this failure.
func (l *Loop) flagCircuit(name string, res *collectors.Result) {
	if l.failures[name]+1 >= circuitThreshold {
		res.Data["circuit_open"] = true
	}
}

// buildHealth assembles the health snapshot from the registry.
func (l *Loop) buildHealth(warning string) *HealthStatus {
	snap := l.Registry.Snapshot()
	states := make(map[string]CollectorHealth, len(snap))
	for name, res := range snap {
		ch := CollectorHealth{
			State:       res.State.String(),
			Error:       res.Err,
			CollectedAt: res.CollectedAt,
			DurationMS:  res.Duration.Milliseconds(),
			Retries:     res.Retries,
		}
		if l.History != nil {
			sum := l.History.Summarize(name)
			ch.Recent = &sum
		}
		states[name] = ch
	}
	return &HealthStatus{
		Warning:    warning,
		Collectors: states,
		UpdatedAt:  time.Now().UTC(),
	}
}
