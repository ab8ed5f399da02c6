package statusreport

import (
	"reflect"
	"testing"
)

const fullReport = `
MoltGate Status

Overview
┌──────────────┬─────────────────────────────────────────────┐
│ Gateway      │ local · reachable · 12ms                    │
│ Memory       │ enabled · qdrant: ok                        │
│ Heartbeat    │ 30s (last beat 2s ago)                      │
│ Agents       │ 2 agents, sessions: 3 · molt-4 (200k ctx)   │
└──────────────┴─────────────────────────────────────────────┘

Channels
┌──────────┬─────────┬───────────┬──────────────────┐
│ Name     │ Enabled │ State     │ Detail           │
│ telegram │ ON      │ connected │ @moltbot         │
│ discord  │ OFF     │ idle      │ not configured   │
└──────────┴─────────┴───────────┴──────────────────┘

Sessions
┌───────────────┬───────┬──────┬─────────┬──────────────────┐
│ Key           │ Kind  │ Age  │ Model   │ Tokens           │
│ main          │ chat  │ 2h   │ molt-4  │ 95k/200k (48%)   │
│ cron:digest   │ task  │ 10m  │ molt-4  │ 0.0k/200k (0%)   │
└───────────────┴───────┴──────┴─────────┴──────────────────┘

Update available: v1.4.0
`

func TestParseFullReport(t *testing.T) {
	ps := Parse(fullReport)

	if ps.GatewayMode != "local" {
		t.Errorf("GatewayMode = %q, want local", ps.GatewayMode)
	}
	if !ps.GatewayReachable {
		t.Error("GatewayReachable = false, want true")
	}
	if ps.GatewayLatencyMS == nil || *ps.GatewayLatencyMS != 12 {
		t.Errorf("GatewayLatencyMS = %v, want 12", ps.GatewayLatencyMS)
	}
	if !ps.MemoryEnabled {
		t.Error("MemoryEnabled = false, want true")
	}
	if ps.MemoryStatus != "ok" {
		t.Errorf("MemoryStatus = %q, want ok", ps.MemoryStatus)
	}
	if ps.HeartbeatInterval != "30s" {
		t.Errorf("HeartbeatInterval = %q, want 30s", ps.HeartbeatInterval)
	}
	if ps.SessionCount != 3 {
		t.Errorf("SessionCount = %d, want 3", ps.SessionCount)
	}
	if ps.DefaultModel != "molt-4" {
		t.Errorf("DefaultModel = %q, want molt-4", ps.DefaultModel)
	}
	if ps.DefaultContext != 200000 {
		t.Errorf("DefaultContext = %d, want 200000", ps.DefaultContext)
	}
	if !ps.UpdateAvailable {
		t.Error("UpdateAvailable = false, want true")
	}
	if ps.LatestVersion != "1.4.0" {
		t.Errorf("LatestVersion = %q, want 1.4.0", ps.LatestVersion)
	}
}

func TestParseChannels(t *testing.T) {
	ps := Parse(fullReport)

	want := []Channel{
		{Name: "telegram", Enabled: true, State: "connected", Detail: "@moltbot"},
		{Name: "discord", Enabled: false, State: "idle", Detail: "not configured"},
	}
	if !reflect.DeepEqual(ps.Channels, want) {
		t.Errorf("Channels = %+v, want %+v", ps.Channels, want)
	}
}

func TestParseSessions(t *testing.T) {
	ps := Parse(fullReport)

	want := []Session{
		{Key: "main", Kind: "chat", Age: "2h", Model: "molt-4", TokensUsed: 95000, TokensTotal: 200000, TokensPct: 48.0},
		{Key: "cron:digest", Kind: "task", Age: "10m", Model: "molt-4", TokensUsed: 0, TokensTotal: 200000, TokensPct: 0.0},
	}
	if !reflect.DeepEqual(ps.Sessions, want) {
		t.Errorf("Sessions = %+v, want %+v", ps.Sessions, want)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	first := Parse(fullReport)
	second := Parse(fullReport)
	if !reflect.DeepEqual(first, second) {
		t.Error("parsing the same text twice produced different records")
	}
}

func TestParseMissingSessionsSection(t *testing.T) {
	report := `
Overview
┌──────────────┬─────────────────────────────────────────────┐
│ Gateway      │ remote · unreachable                        │
│ Agents       │ sessions: 5 · molt-4 (200k ctx)             │
└──────────────┴─────────────────────────────────────────────┘
`
	ps := Parse(report)

	if len(ps.Sessions) != 0 {
		t.Errorf("Sessions = %v, want empty", ps.Sessions)
	}
	if ps.SessionCount != 5 {
		t.Errorf("SessionCount = %d, want 5 (independent of Sessions table)", ps.SessionCount)
	}
	if ps.DefaultModel != "molt-4" {
		t.Errorf("DefaultModel = %q, want molt-4", ps.DefaultModel)
	}
	if ps.GatewayMode != "remote" {
		t.Errorf("GatewayMode = %q, want remote", ps.GatewayMode)
	}
	if ps.GatewayReachable {
		t.Error("GatewayReachable = true for an unreachable gateway")
	}
	if ps.GatewayLatencyMS != nil {
		t.Errorf("GatewayLatencyMS = %v, want nil when absent", *ps.GatewayLatencyMS)
	}
}

func TestParseEmptyInput(t *testing.T) {
	ps := Parse("")
	if ps.UpdateAvailable || len(ps.Channels) != 0 || len(ps.Sessions) != 0 {
		t.Errorf("empty input should yield a zero record, got %+v", ps)
	}
}

func TestParseMalformedRowIsSkipped(t *testing.T) {
	report := `
Sessions
┌───────────────┬───────┬──────┬─────────┬──────────────────┐
│ main          │ chat  │ 2h   │ molt-4  │ 95k/200k (48%)   │
│ broken row without enough cells                           │
│ bad-tokens    │ chat  │ 1h   │ molt-4  │ lots of tokens   │
│ tail          │ chat  │ 5m   │ molt-4  │ 1.5k/8k (19%)    │
└───────────────┴───────┴──────┴─────────┴──────────────────┘
`
	ps := Parse(report)
	if len(ps.Sessions) != 2 {
		t.Fatalf("Sessions = %d rows, want 2 (malformed rows skipped)", len(ps.Sessions))
	}
	if ps.Sessions[1].TokensUsed != 1500 {
		t.Errorf("TokensUsed = %d, want 1500 (one decimal, k unit)", ps.Sessions[1].TokensUsed)
	}
	if ps.Sessions[1].TokensTotal != 8000 {
		t.Errorf("TokensTotal = %d, want 8000", ps.Sessions[1].TokensTotal)
	}
}

func TestParseASCIIPipeSeparators(t *testing.T) {
	report := `
Channels
+----------+---------+-------+--------+
| slack    | ON      | up    | #ops   |
+----------+---------+-------+--------+
`
	ps := Parse(report)
	if len(ps.Channels) != 1 {
		t.Fatalf("Channels = %d rows, want 1", len(ps.Channels))
	}
	if !ps.Channels[0].Enabled || ps.Channels[0].Name != "slack" {
		t.Errorf("Channels[0] = %+v", ps.Channels[0])
	}
}

func TestParseUpdatePhraseCaseInsensitive(t *testing.T) {
	ps := Parse("everything fine\nUPDATE AVAILABLE\n")
	if !ps.UpdateAvailable {
		t.Error("UpdateAvailable = false for upper-case phrase")
	}
	if ps.LatestVersion != "" {
		t.Errorf("LatestVersion = %q, want empty when no version given", ps.LatestVersion)
	}
}

func TestParseMemoryDisabled(t *testing.T) {
	report := `
Overview
┌──────────┬──────────────────────┐
│ Memory   │ disabled             │
└──────────┴──────────────────────┘
`
	ps := Parse(report)
	if ps.MemoryEnabled {
		t.Error("MemoryEnabled = true, want false")
	}
	if ps.MemoryStatus != "disabled" {
		t.Errorf("MemoryStatus = %q, want the raw value when no separator exists", ps.MemoryStatus)
	}
}

func TestIsBorder(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"┌──────┬──────┐", true},
		{"└──────┴──────┘", true},
		{"────", true},
		{"  ─── ", true},
		{"│ a │ b │", false}, // content cells, not a pure border
		{"Overview", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isBorder(tc.line); got != tc.want {
			t.Errorf("isBorder(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
