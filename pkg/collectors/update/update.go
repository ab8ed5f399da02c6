// Package update checks whether a newer agent CLI release is available.
// The installed version comes from the CLI itself; the latest advertised
// version comes from the gateway collector's last status record, so this
// collector never makes its own network-ish calls. Comparison uses
// semantic version ordering, falling back to the gateway's own update
// flag when either version string does not parse.
package update

import (
	"context"
	"regexp"
	"time"

	goversion "github.com/hashicorp/go-version"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/collectors"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/command"
)

// Default configuration values.
const (
	DefaultInterval = time.Hour
	DefaultTimeout  = 5 * time.Second
)

var versionRe = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

// Config holds the configuration for the update collector.
type Config struct {
	// Binary is the agent CLI executable whose version is checked.
	Binary string

	// GatewayName is the registry entry holding the latest advertised
	// version. Empty means "gateway".
	GatewayName string

	// Interval is how often collection runs. Zero uses DefaultInterval.
	Interval time.Duration

	// Timeout bounds the version invocation. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Collector compares the installed CLI version with the latest one.
type Collector struct {
	cfg      Config
	registry *collectors.Registry

	// run is swappable for tests.
	run func(ctx context.Context, name string, args ...string) command.Outcome
}

// New creates an update collector reading advertised versions from reg.
func New(cfg Config, reg *collectors.Registry) *Collector {
	if cfg.Binary == "" {
		cfg.Binary = "moltctl"
	}
	if cfg.GatewayName == "" {
		cfg.GatewayName = "gateway"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	runner := &command.Runner{Timeout: cfg.Timeout}
	return &Collector{cfg: cfg, registry: reg, run: runner.Run}
}

// Name returns the collector identifier.
func (c *Collector) Name() string { return "update" }

// Interval returns how often this collector should run.
func (c *Collector) Interval() time.Duration { return c.cfg.Interval }

// Timeout returns the per-call deadline.
func (c *Collector) Timeout() time.Duration { return c.cfg.Timeout }

// Collect returns {current_version, latest_version, update_available}.
func (c *Collector) Collect(ctx context.Context) (map[string]any, error) {
	out := c.run(ctx, c.cfg.Binary, "--version")
	if out.Err != nil {
		return nil, out.Err
	}

	current := extractVersion(out.Stdout)
	latest, gatewayFlag := c.advertised()

	rec := map[string]any{
		"current_version":  current,
		"latest_version":   latest,
		"update_available": available(current, latest, gatewayFlag),
	}
	return rec, nil
}

// advertised reads the latest version and update flag from the gateway
// collector's last good record.
func (c *Collector) advertised() (latest string, flag bool) {
	res, ok := c.registry.Last(c.cfg.GatewayName)
	if !ok || !res.OK() {
		return "", false
	}
	latest, _ = res.Data["latest_version"].(string)
	flag, _ = res.Data["update_available"].(bool)
	return latest, flag
}

// available compares versions semantically; when either side does not
// parse it defers to the gateway's own flag.
func available(current, latest string, gatewayFlag bool) bool {
	cv, errCur := goversion.NewVersion(current)
	lv, errLat := goversion.NewVersion(latest)
	if errCur != nil || errLat != nil {
		return gatewayFlag
	}
	return lv.GreaterThan(cv)
}

// extractVersion pulls the first dotted version token out of CLI output
// like "moltctl v1.2.3 (build abc)".
func extractVersion(s string) string {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}
