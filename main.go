// agent-pulse is a local status aggregator for an agent/gateway service.
//
// It shells out to companion CLIs, normalizes their output into uniform
// result envelopes, caches expensive calls, aggregates severity-tagged
// alerts, and surfaces a single degradation banner when sources go bad.
//
// Usage:
//
//	agent-pulse [flags]
//
// Flags:
//
//	-config string  Path to configuration file (default: ~/.config/agent-pulse/config.toml)
//	-daemon         Run the background refresh loop (poll interval)
//	-watch          Run the refresh loop at the fast watch interval
//	-json           Print one refresh pass as JSON and exit
//	-alerts         Include the alert report in output
//	-health string  Health file path override
//	-verbose        Enable verbose logging
//	-version        Print version and exit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/mattn/go-isatty"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/alerts"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/collectors"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/collectors/gateway"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/collectors/hostmetrics"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/collectors/update"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/command"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/config"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/daemon"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/degrade"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/history"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/retry"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		runDaemon   = flag.Bool("daemon", false, "Run the background refresh loop")
		runWatch    = flag.Bool("watch", false, "Run the refresh loop at the fast watch interval")
		jsonOutput  = flag.Bool("json", false, "Print one refresh pass as JSON and exit")
		withAlerts  = flag.Bool("alerts", false, "Include the alert report in output")
		healthPath  = flag.String("health", "", "Health file path override")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("agent-pulse %s (%s)\n", version, commit)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent-pulse: load config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.General.LogLevel, *verbose)

	if *healthPath != "" {
		cfg.General.HealthPath = *healthPath
	}

	reg := collectors.NewRegistry()
	if err := registerCollectors(reg, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "agent-pulse: %v\n", err)
		os.Exit(1)
	}

	loop := &daemon.Loop{
		Interval: cfg.General.PollInterval.Duration,
		Registry: reg,
		Monitor: &degrade.Monitor{
			Registry:  reg,
			Monitored: cfg.Degrade.Monitored,
			MaxAge:    cfg.Degrade.MaxAge.Duration,
		},
		HealthPath: cfg.General.HealthPath,
		History:    history.NewLog(history.Config{}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *runDaemon, *runWatch:
		if *runWatch {
			loop.Interval = cfg.General.WatchInterval.Duration
			loop.OnPass = func(warning string) { printSnapshot(reg, warning) }
		}
		if cfg.General.PidPath != "" {
			if err := daemon.AcquirePID(cfg.General.PidPath); err != nil {
				fmt.Fprintf(os.Stderr, "agent-pulse: %v\n", err)
				os.Exit(1)
			}
			defer daemon.ReleasePID(cfg.General.PidPath)
		}
		slog.Info("refresh loop starting", "interval", loop.Interval)
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "agent-pulse: %v\n", err)
			os.Exit(1)
		}

	case *jsonOutput:
		warning := loop.RunOnce(ctx)
		out := map[string]any{
			"warning":    warning,
			"collectors": snapshotRecords(reg),
		}
		if *withAlerts {
			out["alerts"] = buildAggregator(reg, cfg).Collect(ctx)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "agent-pulse: encode output: %v\n", err)
			os.Exit(1)
		}

	default:
		warning := loop.RunOnce(ctx)
		printSnapshot(reg, warning)
		if *withAlerts {
			printAlerts(buildAggregator(reg, cfg).Collect(ctx))
		}
	}
}

// loadConfig loads the named file, or walks the standard search paths.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogging configures the process-wide slog default.
func setupLogging(level string, verbose bool) {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// registerCollectors wires the configured collectors into the registry.
func registerCollectors(reg *collectors.Registry, cfg *config.Config) error {
	gw := gateway.New(gateway.Config{
		Binary:   cfg.Gateway.Binary,
		Interval: cfg.Gateway.Interval.Duration,
		Timeout:  cfg.Gateway.Timeout.Duration,
		CacheTTL: cfg.Gateway.CacheTTL.Duration,
		Retry: retry.Policy{
			MaxRetries:    cfg.Gateway.Retries,
			InitialDelay:  cfg.Gateway.RetryDelay.Duration,
			BackoffFactor: cfg.Gateway.Backoff,
		},
	})
	if err := reg.Register(gw); err != nil {
		return err
	}

	if cfg.HostMetrics.Enabled {
		hm := hostmetrics.New(hostmetrics.Config{
			Interval:        cfg.HostMetrics.Interval.Duration,
			MonitoredMounts: cfg.HostMetrics.MonitoredMounts,
		})
		if err := reg.Register(hm); err != nil {
			return err
		}
	}

	if cfg.Update.Enabled {
		up := update.New(update.Config{
			Binary:   cfg.Update.Binary,
			Interval: cfg.Update.Interval.Duration,
			Timeout:  cfg.Update.Timeout.Duration,
		}, reg)
		if err := reg.Register(up); err != nil {
			return err
		}
	}

	return nil
}

// buildAggregator assembles the enabled alert sources.
func buildAggregator(reg *collectors.Registry, cfg *config.Config) *alerts.Aggregator {
	var sources []alerts.Source

	if cfg.Alerts.CIEnabled && len(cfg.Alerts.Repos) > 0 {
		repos := make([]alerts.Repo, 0, len(cfg.Alerts.Repos))
		for _, r := range cfg.Alerts.Repos {
			repos = append(repos, alerts.Repo{
				Owner:         r.Owner,
				Name:          r.Name,
				DefaultBranch: r.DefaultBranch,
			})
		}
		sources = append(sources, &alerts.CISource{
			Repos: repos,
			Lister: &alerts.GHRunLister{
				Binary: cfg.Alerts.GHBinary,
				Runner: &command.Runner{Timeout: cfg.Alerts.GHTimeout.Duration},
			},
		})
	}

	if cfg.Alerts.ContextEnabled {
		sources = append(sources, &alerts.ContextSource{
			Fetcher: &alerts.CLIUsageFetcher{
				Binary: cfg.Gateway.Binary,
				Runner: &command.Runner{Timeout: cfg.Gateway.Timeout.Duration},
			},
			Thresholds: alerts.Thresholds{
				High:     cfg.Alerts.ContextHigh,
				Critical: cfg.Alerts.ContextCritical,
			},
		})
	}

	if cfg.Alerts.UpdateEnabled {
		sources = append(sources, &alerts.UpdateSource{Registry: reg})
	}

	return alerts.NewAggregator(sources...)
}

// printSnapshot renders one line per collector plus the warning banner.
func printSnapshot(reg *collectors.Registry, warning string) {
	snap := reg.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	decorated := isatty.IsTerminal(os.Stdout.Fd())
	for _, name := range names {
		res := snap[name]
		line := fmt.Sprintf("%-12s %s", name, res.State)
		if !res.OK() && res.Err != "" {
			line += "  (" + res.Err + ")"
		}
		fmt.Println(line)
	}
	if warning != "" {
		if decorated {
			// Bold yellow banner on terminals, plain text elsewhere.
			fmt.Printf("\033[1;33m! %s\033[0m\n", warning)
		} else {
			fmt.Printf("! %s\n", warning)
		}
	}
}

// printAlerts renders the alert report beneath the snapshot.
func printAlerts(report alerts.Report) {
	if report.Total == 0 {
		fmt.Println("alerts: none")
		return
	}
	fmt.Printf("alerts: %d\n", report.Total)
	for _, a := range report.Alerts {
		fmt.Printf("  [%s] %s (%s)\n", a.Severity, a.Title, a.Source)
	}
}

// snapshotRecords converts the registry snapshot into JSON-ready records.
func snapshotRecords(reg *collectors.Registry) map[string]map[string]any {
	snap := reg.Snapshot()
	out := make(map[string]map[string]any, len(snap))
	for name, res := range snap {
		out[name] = res.Record()
	}
	return out
}
