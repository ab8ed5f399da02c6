// Package statusreport parses the box-drawn text report emitted by the
// agent gateway CLI into a structured record. The parser is tolerant by
// construction: it classifies lines (border, section header, content)
// instead of trusting layout, skips malformed rows, and never returns an
// error; a missing section simply leaves its fields at zero values.
package statusreport

// ParsedStatus is the structured form of one status report.
type ParsedStatus struct {
	// Overview fields.
	GatewayMode       string `json:"gateway_mode"`
	GatewayReachable  bool   `json:"gateway_reachable"`
	GatewayLatencyMS  *int   `json:"gateway_latency_ms,omitempty"`
	MemoryEnabled     bool   `json:"memory_enabled"`
	MemoryStatus      string `json:"memory_status"`
	HeartbeatInterval string `json:"heartbeat_interval"`
	SessionCount      int    `json:"session_count"`
	DefaultModel      string `json:"default_model"`
	DefaultContext    int    `json:"default_context"`

	// Channels section, one entry per table row.
	Channels []Channel `json:"channels"`

	// Sessions section, one entry per table row.
	Sessions []Session `json:"sessions"`

	// UpdateAvailable is set when the phrase "update available" occurs
	// anywhere in the report, in any case.
	UpdateAvailable bool `json:"update_available"`

	// LatestVersion carries the version advertised alongside the update
	// notice ("Update available: v1.4.0"), when present.
	LatestVersion string `json:"latest_version,omitempty"`
}

// Channel describes one messaging channel row.
type Channel struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	State   string `json:"state"`
	Detail  string `json:"detail"`
}

// Session describes one active session row.
type Session struct {
	Key         string  `json:"key"`
	Kind        string  `json:"kind"`
	Age         string  `json:"age"`
	Model       string  `json:"model"`
	TokensUsed  int     `json:"tokens_used"`
	TokensTotal int     `json:"tokens_total"`
	TokensPct   float64 `json:"tokens_pct"`
}
