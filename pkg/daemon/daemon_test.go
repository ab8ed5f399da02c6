package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/collectors"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/degrade"
	"gitlab.com/tinyland/lab/agent-pulse/pkg/history"
)

func newTestLoop(t *testing.T, reg *collectors.Registry) *Loop {
	t.Helper()
	return &Loop{
		Interval: time.Second,
		Registry: reg,
		Monitor: &degrade.Monitor{
			Registry:  reg,
			Monitored: reg.Names(),
			MaxAge:    time.Minute,
		},
	}
}

func TestRunOnceStoresResults(t *testing.T) {
	reg := collectors.NewRegistry()
	_ = reg.Register(collectors.NewMockCollector("gateway", time.Second,
		collectors.WithData(map[string]any{"gateway_mode": "local"})))

	l := newTestLoop(t, reg)
	warning := l.RunOnce(context.Background())

	res, ok := reg.Last("gateway")
	if !ok {
		t.Fatal("RunOnce did not store a result")
	}
	if !res.OK() {
		t.Errorf("State = %v, want ok", res.State)
	}
	if res.Data["gateway_mode"] != "local" {
		t.Errorf("Data = %v", res.Data)
	}
	if warning != "" {
		t.Errorf("warning = %q, want empty", warning)
	}
}

func TestRunOnceClassifiesFailure(t *testing.T) {
	reg := collectors.NewRegistry()
	_ = reg.Register(collectors.NewMockCollector("gateway", time.Second,
		collectors.WithError(errors.New("gateway fell over"))))

	l := newTestLoop(t, reg)
	warning := l.RunOnce(context.Background())

	res, _ := reg.Last("gateway")
	if res.State != collectors.StateError {
		t.Errorf("State = %v, want error", res.State)
	}
	if res.Err != "gateway fell over" {
		t.Errorf("Err = %q", res.Err)
	}
	if warning == "" {
		t.Error("a failing gateway should produce a warning")
	}
}

func TestRunOnceRecoversPanic(t *testing.T) {
	reg := collectors.NewRegistry()
	_ = reg.Register(collectors.NewMockCollector("boom", time.Second,
		collectors.WithCollectFunc(func(ctx context.Context) (map[string]any, error) {
			panic("kaboom")
		})))
	_ = reg.Register(collectors.NewMockCollector("calm", time.Second,
		collectors.WithData(map[string]any{})))

	l := newTestLoop(t, reg)
	l.RunOnce(context.Background())

	res, ok := reg.Last("boom")
	if !ok || res.State != collectors.StateError {
		t.Fatalf("panicking collector result = %+v", res)
	}
	if res.ErrType != "panic" {
		t.Errorf("ErrType = %q, want panic", res.ErrType)
	}
	if calm, _ := reg.Last("calm"); !calm.OK() {
		t.Error("a panicking collector blocked the rest of the pass")
	}
}

func TestRunOnceRespectsCollectorInterval(t *testing.T) {
	reg := collectors.NewRegistry()
	slow := collectors.NewMockCollector("slow", time.Hour,
		collectors.WithData(map[string]any{}))
	_ = reg.Register(slow)

	l := newTestLoop(t, reg)
	l.RunOnce(context.Background())
	l.RunOnce(context.Background())

	if n := slow.CallCount(); n != 1 {
		t.Errorf("hour-interval collector ran %d times across two passes, want 1", n)
	}
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	reg := collectors.NewRegistry()
	_ = reg.Register(collectors.NewMockCollector("gateway", 0,
		collectors.WithError(errors.New("down"))))

	l := newTestLoop(t, reg)
	for i := 0; i < circuitThreshold; i++ {
		l.RunOnce(context.Background())
	}

	res, _ := reg.Last("gateway")
	if open, _ := res.Data["circuit_open"].(bool); !open {
		t.Errorf("circuit_open not set after %d consecutive failures: %v", circuitThreshold, res.Data)
	}

	warning := l.Monitor.Check()
	if warning == "" {
		t.Error("expected a circuit-open warning")
	}
}

func TestCircuitResetsOnSuccess(t *testing.T) {
	reg := collectors.NewRegistry()
	mock := collectors.NewMockCollector("gateway", 0,
		collectors.WithError(errors.New("down")))
	_ = reg.Register(mock)

	l := newTestLoop(t, reg)
	for i := 0; i < circuitThreshold-1; i++ {
		l.RunOnce(context.Background())
	}
	mock.SetError(nil)
	mock.SetData(map[string]any{})
	l.RunOnce(context.Background())
	mock.SetError(errors.New("down again"))
	l.RunOnce(context.Background())

	res, _ := reg.Last("gateway")
	if open, _ := res.Data["circuit_open"].(bool); open {
		t.Error("one failure after a success should not reopen the circuit")
	}
}

func TestRunOnceWritesHealthFile(t *testing.T) {
	reg := collectors.NewRegistry()
	_ = reg.Register(collectors.NewMockCollector("gateway", time.Second,
		collectors.WithData(map[string]any{})))

	path := filepath.Join(t.TempDir(), "health.json")
	l := newTestLoop(t, reg)
	l.HealthPath = path
	l.RunOnce(context.Background())

	status, err := ReadHealthFile(path)
	if err != nil {
		t.Fatalf("ReadHealthFile: %v", err)
	}
	ch, ok := status.Collectors["gateway"]
	if !ok {
		t.Fatalf("health snapshot missing gateway: %+v", status)
	}
	if ch.State != "ok" {
		t.Errorf("State = %q, want ok", ch.State)
	}
	if ch.CollectedAt.IsZero() {
		t.Error("CollectedAt missing from health snapshot")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	reg := collectors.NewRegistry()
	_ = reg.Register(collectors.NewMockCollector("gateway", 0,
		collectors.WithData(map[string]any{})))

	l := newTestLoop(t, reg)
	l.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

// --- PID file tests ---

func TestAcquireReleasePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent-pulse.pid")

	if err := AcquirePID(path); err != nil {
		t.Fatalf("AcquirePID: %v", err)
	}
	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("PID = %d, want %d", pid, os.Getpid())
	}

	// Re-acquiring our own pidfile is a no-op.
	if err := AcquirePID(path); err != nil {
		t.Fatalf("re-acquire of own pidfile: %v", err)
	}

	// A file held by another live process cannot be acquired or released.
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatalf("seed foreign pidfile: %v", err)
	}
	if IsProcessAlive(1) {
		if err := AcquirePID(path); err == nil {
			t.Error("AcquirePID should fail while PID 1 holds the file")
		}
		if err := ReleasePID(path); err == nil {
			t.Error("ReleasePID should refuse a foreign live holder")
		}
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("restore pidfile: %v", err)
	}

	if err := ReleasePID(path); err != nil {
		t.Fatalf("ReleasePID: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("PID file still present after release")
	}

	// Releasing an already-missing file is fine.
	if err := ReleasePID(path); err != nil {
		t.Errorf("ReleasePID of missing file: %v", err)
	}
}

func TestAcquirePIDReclaimsStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent-pulse.pid")

	// A PID that cannot belong to a live process.
	if err := os.WriteFile(path, []byte(strconv.Itoa(1<<30)), 0o644); err != nil {
		t.Fatalf("seed stale pidfile: %v", err)
	}
	if err := AcquirePID(path); err != nil {
		t.Fatalf("AcquirePID should reclaim a stale file: %v", err)
	}
	t.Cleanup(func() { _ = ReleasePID(path) })
}

// ---------- history ----------

func TestRunOnceRecordsHistory(t *testing.T) {
	reg := collectors.NewRegistry()
	_ = reg.Register(collectors.NewMockCollector("gateway", 0,
		collectors.WithData(map[string]any{"ok": true})))
	bad := collectors.NewMockCollector("update", 0,
		collectors.WithError(errors.New("registry down")))
	_ = reg.Register(bad)

	l := newTestLoop(t, reg)
	l.History = history.NewLog(history.Config{})

	l.RunOnce(context.Background())
	l.RunOnce(context.Background())

	if got := l.History.Len("gateway"); got != 2 {
		t.Errorf("gateway observations = %d, want 2", got)
	}
	sum := l.History.Summarize("update")
	if sum.Count != 2 || sum.Failures != 2 {
		t.Errorf("update summary = %+v, want 2 failures of 2", sum)
	}
	if sum.LastOK {
		t.Error("LastOK = true for a failing collector")
	}
}

func TestHealthFileIncludesRecentSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "health.json")

	reg := collectors.NewRegistry()
	_ = reg.Register(collectors.NewMockCollector("gateway", 0,
		collectors.WithData(map[string]any{"ok": true})))

	l := newTestLoop(t, reg)
	l.History = history.NewLog(history.Config{})
	l.HealthPath = path

	l.RunOnce(context.Background())

	status, err := ReadHealthFile(path)
	if err != nil {
		t.Fatalf("ReadHealthFile: %v", err)
	}
	ch, ok := status.Collectors["gateway"]
	if !ok {
		t.Fatal("gateway missing from health snapshot")
	}
	if ch.Recent == nil {
		t.Fatal("Recent summary missing")
	}
	if ch.Recent.Count != 1 || !ch.Recent.LastOK {
		t.Errorf("Recent = %+v, want 1 ok observation", ch.Recent)
	}
}
