// Package hostmetrics collects CPU, memory, disk, load, and uptime data
// for the machine the agent gateway runs on. It uses gopsutil so the same
// collector works on Darwin and Linux without /proc dependencies.
package hostmetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Default configuration values.
const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 2 * time.Second
)

// Config controls the hostmetrics collector behaviour.
type Config struct {
	// Interval is how often collection runs. Zero uses DefaultInterval.
	Interval time.Duration

	// MonitoredMounts restricts disk collection to these mount paths.
	// Empty means the root filesystem only.
	MonitoredMounts []string
}

// Collector gathers host metrics via gopsutil.
type Collector struct {
	cfg Config
}

// New creates a Collector with the given configuration. Zero-value fields
// in cfg are replaced with defaults.
func New(cfg Config) *Collector {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if len(cfg.MonitoredMounts) == 0 {
		cfg.MonitoredMounts = []string{"/"}
	}
	return &Collector{cfg: cfg}
}

// Name returns the collector identifier.
func (c *Collector) Name() string { return "hostmetrics" }

// Interval returns how often this collector should run.
func (c *Collector) Interval() time.Duration { return c.cfg.Interval }

// Timeout returns the per-call deadline.
func (c *Collector) Timeout() time.Duration { return DefaultTimeout }

// Collect gathers one metrics snapshot. Individual probes may fail on
// exotic platforms; the first failure is returned so the refresh loop can
// record a classified error rather than a half-empty record.
func (c *Collector) Collect(ctx context.Context) (map[string]any, error) {
	rec := make(map[string]any)

	// Instantaneous (non-blocking) CPU sample; the interval between
	// refresh passes provides the measurement window.
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percentages) > 0 {
		rec["cpu_percent"] = percentages[0]
	}
	if count, err := cpu.CountsWithContext(ctx, true); err == nil {
		rec["cpu_count"] = count
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}
	rec["mem_total"] = vm.Total
	rec["mem_used"] = vm.Used
	rec["mem_available"] = vm.Available
	rec["mem_used_percent"] = vm.UsedPercent

	disks := make([]map[string]any, 0, len(c.cfg.MonitoredMounts))
	for _, mount := range c.cfg.MonitoredMounts {
		du, err := disk.UsageWithContext(ctx, mount)
		if err != nil {
			// A missing mount is a config quirk, not a collector failure.
			continue
		}
		disks = append(disks, map[string]any{
			"path":         du.Path,
			"total":        du.Total,
			"used":         du.Used,
			"free":         du.Free,
			"used_percent": du.UsedPercent,
		})
	}
	rec["disks"] = disks

	if avg, err := load.AvgWithContext(ctx); err == nil {
		rec["load1"] = avg.Load1
		rec["load5"] = avg.Load5
		rec["load15"] = avg.Load15
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		rec["uptime_seconds"] = uptime
	}

	return rec, nil
}
