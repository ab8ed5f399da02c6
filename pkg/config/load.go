package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from the standard config path.
// Search order:
//  1. $AGENT_PULSE_CONFIG
//  2. $XDG_CONFIG_HOME/agent-pulse/config.toml
//  3. ~/.config/agent-pulse/config.toml
//
// If no file exists, returns DefaultConfig().
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	return DefaultConfig(), nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader reads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			PollInterval:  Duration{30 * time.Second},
			WatchInterval: Duration{5 * time.Second},
			LogLevel:      "info",
		},
		Gateway: GatewayConfig{
			Binary:     "moltctl",
			Timeout:    Duration{10 * time.Second},
			CacheTTL:   Duration{30 * time.Second},
			Retries:    2,
			RetryDelay: Duration{500 * time.Millisecond},
			Backoff:    2.0,
			Interval:   Duration{30 * time.Second},
		},
		HostMetrics: HostMetricsConfig{
			Enabled:  true,
			Interval: Duration{5 * time.Second},
		},
		Update: UpdateConfig{
			Enabled:  true,
			Binary:   "moltctl",
			Timeout:  Duration{5 * time.Second},
			Interval: Duration{time.Hour},
		},
		Alerts: AlertsConfig{
			CIEnabled:       false,
			ContextEnabled:  true,
			UpdateEnabled:   true,
			GHBinary:        "gh",
			GHTimeout:       Duration{15 * time.Second},
			ContextHigh:     0.75,
			ContextCritical: 0.90,
		},
		Degrade: DegradeConfig{
			Monitored: []string{"gateway", "hostmetrics", "update"},
			MaxAge:    Duration{90 * time.Second},
		},
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENT_PULSE_GATEWAY_BIN"); v != "" {
		cfg.Gateway.Binary = v
		cfg.Update.Binary = v
	}
	if v := os.Getenv("AGENT_PULSE_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = v
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	var paths []string
	if p := os.Getenv("AGENT_PULSE_CONFIG"); p != "" {
		paths = append(paths, p)
	}

	home, _ := os.UserHomeDir()
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" && home != "" {
		xdg = filepath.Join(home, ".config")
	}
	if xdg != "" {
		paths = append(paths, filepath.Join(xdg, "agent-pulse", "config.toml"))
	}
	return paths
}
