// Package gateway collects the agent gateway's status by invoking its
// companion CLI and normalizing whatever comes back (a JSON payload or
// the box-drawn text report) into a flat key-value record. The exec is
// wrapped in backoff retries and a TTL memo so a refresh storm never
// hammers the CLI.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/cache"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/command"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/retry"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/statusreport"
)

// Default configuration values.
const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 30 * time.Second
)

// Config holds the configuration for the gateway collector.
type Config struct {
	// Binary is the gateway CLI executable (e.g., "moltctl").
	Binary string

	// Args is the argument vector for the status invocation.
	// Empty means ["status"].
	Args []string

	// Interval is how often collection runs. Zero uses DefaultInterval.
	Interval time.Duration

	// Timeout bounds one CLI invocation. Zero uses DefaultTimeout.
	Timeout time.Duration

	// CacheTTL is the memoization window. Zero uses DefaultCacheTTL.
	CacheTTL time.Duration

	// Retry controls the backoff around the invocation.
	Retry retry.Policy
}

// Collector gathers gateway status via the companion CLI.
type Collector struct {
	cfg  Config
	memo *cache.Memo[map[string]any]

	// run is swappable for tests; production wiring points it at a
	// command.Runner bound to cfg.Timeout.
	run func(ctx context.Context, name string, args ...string) command.Outcome

	retries atomic.Int64
}

// New creates a gateway collector. Zero-value fields in cfg are replaced
// with defaults.
func New(cfg Config) *Collector {
	if cfg.Binary == "" {
		cfg.Binary = "moltctl"
	}
	if len(cfg.Args) == 0 {
		cfg.Args = []string{"status"}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Retry.BackoffFactor == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	runner := &command.Runner{Timeout: cfg.Timeout}
	return &Collector{
		cfg:  cfg,
		memo: cache.New[map[string]any](cfg.CacheTTL, map[string]any{}),
		run:  runner.Run,
	}
}

// Name returns the collector identifier.
func (c *Collector) Name() string { return "gateway" }

// Interval returns how often this collector should run.
func (c *Collector) Interval() time.Duration { return c.cfg.Interval }

// Timeout returns the per-call deadline, padded for retries.
func (c *Collector) Timeout() time.Duration {
	return c.cfg.Timeout * time.Duration(c.cfg.Retry.MaxRetries+1)
}

// LastRetries reports how many extra attempts the most recent Collect
// spent. The refresh loop folds this into the stored result.
func (c *Collector) LastRetries() int { return int(c.retries.Load()) }

// Collect returns the gateway status record, served from the memo while
// it is fresh.
func (c *Collector) Collect(ctx context.Context) (map[string]any, error) {
	return c.memo.Get(ctx, func(ctx context.Context) (map[string]any, error) {
		rec, attempts, err := retry.Do(ctx, c.cfg.Retry, c.fetch)
		c.retries.Store(int64(attempts - 1))
		if err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// fetch performs one CLI invocation and normalizes the payload.
func (c *Collector) fetch(ctx context.Context) (map[string]any, error) {
	out := c.run(ctx, c.cfg.Binary, c.cfg.Args...)
	if out.Err != nil {
		return nil, out.Err
	}

	stdout := strings.TrimSpace(out.Stdout)
	if strings.HasPrefix(stdout, "{") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(stdout), &rec); err != nil {
			return nil, fmt.Errorf("decode gateway JSON status: %w", err)
		}
		return rec, nil
	}

	return reportRecord(statusreport.Parse(stdout))
}

// reportRecord flattens a ParsedStatus into the collector record shape
// via its JSON tags.
func reportRecord(ps statusreport.ParsedStatus) (map[string]any, error) {
	data, err := json.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("flatten parsed status: %w", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("flatten parsed status: %w", err)
	}
	return rec, nil
}
