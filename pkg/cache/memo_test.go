package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock drives a Memo's notion of time in tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemo[T any](ttl time.Duration, fallback T) (*Memo[T], *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	m := New(ttl, fallback)
	m.now = clock.now
	return m, clock
}

func TestGetFreshValueSkipsInvocation(t *testing.T) {
	m, clock := newTestMemo(30*time.Second, "fallback")
	calls := 0
	fn := func(ctx context.Context) (string, error) {
		calls++
		return "live", nil
	}

	if v, err := m.Get(context.Background(), fn); err != nil || v != "live" {
		t.Fatalf("first Get = (%q, %v)", v, err)
	}

	clock.advance(10 * time.Second)
	if v, _ := m.Get(context.Background(), fn); v != "live" {
		t.Errorf("second Get = %q, want cached value", v)
	}
	if calls != 1 {
		t.Errorf("fn called %d times within TTL, want 1", calls)
	}

	st := m.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("Stats = %+v, want 1 hit / 1 miss", st)
	}
}

func TestGetExpiryReinvokes(t *testing.T) {
	m, clock := newTestMemo(30*time.Second, 0)
	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, _ = m.Get(context.Background(), fn)
	clock.advance(31 * time.Second)

	v, err := m.Get(context.Background(), fn)
	if err != nil {
		t.Fatalf("Get after expiry: %v", err)
	}
	if v != 2 {
		t.Errorf("value = %d, want refreshed value 2", v)
	}
}

func TestGetFailureBeforeAnySuccessReturnsFallback(t *testing.T) {
	m, _ := newTestMemo(30*time.Second, "default")
	fn := func(ctx context.Context) (string, error) {
		return "", errors.New("source down")
	}

	v, err := m.Get(context.Background(), fn)
	if err == nil {
		t.Fatal("Get should surface the refresh error")
	}
	if v != "default" {
		t.Errorf("value = %q, want fallback", v)
	}
}

func TestGetFailureAfterSuccessServesPreviousValue(t *testing.T) {
	m, clock := newTestMemo(30*time.Second, "default")
	good := func(ctx context.Context) (string, error) { return "good", nil }
	bad := func(ctx context.Context) (string, error) { return "", errors.New("flaky") }

	if _, err := m.Get(context.Background(), good); err != nil {
		t.Fatalf("seed Get: %v", err)
	}
	clock.advance(time.Minute)

	v, err := m.Get(context.Background(), bad)
	if err == nil {
		t.Fatal("failed refresh should surface its error")
	}
	if v != "good" {
		t.Errorf("value = %q, want the previously cached value, not the fallback", v)
	}
}

func TestGetFailureDoesNotResetTTL(t *testing.T) {
	m, clock := newTestMemo(30*time.Second, 0)
	calls := 0
	flaky := func(ctx context.Context) (int, error) {
		calls++
		if calls == 2 {
			return 0, errors.New("transient")
		}
		return calls, nil
	}

	_, _ = m.Get(context.Background(), flaky) // call 1: ok
	clock.advance(31 * time.Second)
	_, _ = m.Get(context.Background(), flaky) // call 2: fails, timestamp untouched

	// No clock advance: the failed refresh must not have restarted the
	// window, so this Get retries immediately.
	v, err := m.Get(context.Background(), flaky)
	if err != nil {
		t.Fatalf("retry Get: %v", err)
	}
	if v != 3 {
		t.Errorf("value = %d, want immediate re-invocation (3)", v)
	}
}

func TestInvalidateForcesRefresh(t *testing.T) {
	m, _ := newTestMemo(time.Hour, 0)
	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, _ = m.Get(context.Background(), fn)
	m.Invalidate()
	v, _ := m.Get(context.Background(), fn)
	if v != 2 {
		t.Errorf("value after Invalidate = %d, want 2", v)
	}
}

func TestMemosAreIndependent(t *testing.T) {
	a, _ := newTestMemo(time.Hour, "")
	b, _ := newTestMemo(time.Hour, "")

	_, _ = a.Get(context.Background(), func(ctx context.Context) (string, error) { return "alpha", nil })
	v, _ := b.Get(context.Background(), func(ctx context.Context) (string, error) { return "beta", nil })
	if v != "beta" {
		t.Errorf("memo b = %q, want beta (no cross-slot interference)", v)
	}
}
