package config

// Config is the root configuration for agent-pulse.
type Config struct {
	General     GeneralConfig     `toml:"general"`
	Gateway     GatewayConfig     `toml:"gateway"`
	HostMetrics HostMetricsConfig `toml:"hostmetrics"`
	Update      UpdateConfig      `toml:"update"`
	Alerts      AlertsConfig      `toml:"alerts"`
	Degrade     DegradeConfig     `toml:"degrade"`
}

// GeneralConfig holds daemon-wide settings.
type GeneralConfig struct {
	// PollInterval is the refresh-pass period in daemon mode.
	PollInterval Duration `toml:"poll_interval"`

	// WatchInterval is the faster period used with -watch.
	WatchInterval Duration `toml:"watch_interval"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// HealthPath is where the daemon writes its health snapshot.
	// Empty disables the health file.
	HealthPath string `toml:"health_path"`

	// PidPath is where the daemon writes its pidfile. Empty disables it.
	PidPath string `toml:"pid_path"`
}

// GatewayConfig configures the gateway status collector.
type GatewayConfig struct {
	Binary     string   `toml:"binary"`
	Timeout    Duration `toml:"timeout"`
	CacheTTL   Duration `toml:"cache_ttl"`
	Retries    int      `toml:"retries"`
	RetryDelay Duration `toml:"retry_delay"`
	Backoff    float64  `toml:"backoff"`
	Interval   Duration `toml:"interval"`
}

// HostMetricsConfig configures the host metrics collector.
type HostMetricsConfig struct {
	Enabled         bool     `toml:"enabled"`
	Interval        Duration `toml:"interval"`
	MonitoredMounts []string `toml:"monitored_mounts"`
}

// UpdateConfig configures the update-availability collector.
type UpdateConfig struct {
	Enabled  bool     `toml:"enabled"`
	Binary   string   `toml:"binary"`
	Timeout  Duration `toml:"timeout"`
	Interval Duration `toml:"interval"`
}

// AlertsConfig configures the alert aggregator and its sources.
type AlertsConfig struct {
	CIEnabled      bool     `toml:"ci_enabled"`
	ContextEnabled bool     `toml:"context_enabled"`
	UpdateEnabled  bool     `toml:"update_enabled"`
	GHBinary       string   `toml:"gh_binary"`
	GHTimeout      Duration `toml:"gh_timeout"`

	// ContextHigh and ContextCritical are usage fractions in [0,1].
	ContextHigh     float64 `toml:"context_high"`
	ContextCritical float64 `toml:"context_critical"`

	Repos []RepoConfig `toml:"repos"`
}

// RepoConfig identifies one repository watched for CI failures.
type RepoConfig struct {
	Owner         string `toml:"owner"`
	Name          string `toml:"name"`
	DefaultBranch string `toml:"default_branch"`
}

// DegradeConfig configures the degradation monitor.
type DegradeConfig struct {
	// Monitored is the fixed list of collector names to watch.
	Monitored []string `toml:"monitored"`

	// MaxAge is the freshness window before data counts as stale.
	MaxAge Duration `toml:"max_age"`
}
