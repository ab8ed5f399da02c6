// Package history keeps a short in-memory record of collection outcomes.
// Observations are stored in parallel slices sharing a common time axis,
// one set per collector, so summaries can scan a single column at a time.
// The log is bounded both by point count and by retention age.
package history

import (
	"sort"
	"sync"
	"time"
)

// Config controls the behavior of a Log instance.
type Config struct {
	// Retention is how long observations are kept. Zero means 10 minutes.
	Retention time.Duration

	// MaxPoints is the upper bound on observations per collector.
	// Zero means 600.
	MaxPoints int
}

func (c Config) defaults() Config {
	if c.Retention == 0 {
		c.Retention = 10 * time.Minute
	}
	if c.MaxPoints == 0 {
		c.MaxPoints = 600
	}
	return c
}

// series holds the observation columns for one collector.
type series struct {
	times     []time.Time
	latencies []time.Duration
	oks       []bool
}

// Summary aggregates the observations for one collector over a window.
type Summary struct {
	// Count is the number of observations in the window.
	Count int `json:"count"`

	// Failures is how many of them were not OK.
	Failures int `json:"failures"`

	// ErrorRate is Failures/Count, 0 when the window is empty.
	ErrorRate float64 `json:"error_rate"`

	// AvgLatencyMS and MaxLatencyMS are over the window, in milliseconds.
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	MaxLatencyMS float64 `json:"max_latency_ms"`

	// LastOK reports whether the most recent observation succeeded.
	// False when the window is empty.
	LastOK bool `json:"last_ok"`
}

// Log records collection outcomes per collector. It is safe for concurrent
// use by multiple goroutines.
type Log struct {
	mu  sync.RWMutex
	cfg Config
	all map[string]*series

	// now is swappable for tests.
	now func() time.Time
}

// NewLog creates an observation log with the given configuration.
func NewLog(cfg Config) *Log {
	return &Log{
		cfg: cfg.defaults(),
		all: make(map[string]*series),
		now: time.Now,
	}
}

// Record appends one observation for the named collector. Old points beyond
// MaxPoints are dropped immediately.
func (l *Log) Record(name string, at time.Time, latency time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.all[name]
	if s == nil {
		s = &series{}
		l.all[name] = s
	}
	s.times = append(s.times, at)
	s.latencies = append(s.latencies, latency)
	s.oks = append(s.oks, ok)

	if excess := len(s.times) - l.cfg.MaxPoints; excess > 0 {
		s.times = s.times[excess:]
		s.latencies = s.latencies[excess:]
		s.oks = s.oks[excess:]
	}
}

// Window summarizes the named collector's observations within the last d.
// A missing collector or empty window yields a zero Summary.
func (l *Log) Window(name string, d time.Duration) Summary {
	return l.summarize(name, l.now().Add(-d))
}

// Summarize aggregates every observation currently retained for name.
func (l *Log) Summarize(name string) Summary {
	return l.summarize(name, time.Time{})
}

func (l *Log) summarize(name string, cutoff time.Time) Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := l.all[name]
	if s == nil {
		return Summary{}
	}

	// The time axis is append-only, so binary search finds the window start.
	lo := sort.Search(len(s.times), func(i int) bool {
		return s.times[i].After(cutoff)
	})
	if lo >= len(s.times) {
		return Summary{}
	}

	var sum Summary
	var total time.Duration
	var max time.Duration
	for i := lo; i < len(s.times); i++ {
		sum.Count++
		if !s.oks[i] {
			sum.Failures++
		}
		total += s.latencies[i]
		if s.latencies[i] > max {
			max = s.latencies[i]
		}
	}
	sum.ErrorRate = float64(sum.Failures) / float64(sum.Count)
	sum.AvgLatencyMS = float64(total.Milliseconds()) / float64(sum.Count)
	sum.MaxLatencyMS = float64(max.Milliseconds())
	sum.LastOK = s.oks[len(s.oks)-1]
	return sum
}

// Names returns the collectors with retained observations, sorted.
func (l *Log) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.all))
	for name := range l.all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of retained observations for name.
func (l *Log) Len(name string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := l.all[name]
	if s == nil {
		return 0
	}
	return len(s.times)
}

// Prune drops observations older than the retention window. It returns the
// number of points removed. When more than half of a series is dropped the
// backing arrays are compacted to release memory.
func (l *Log) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.Retention)
	removed := 0

	for name, s := range l.all {
		idx := sort.Search(len(s.times), func(i int) bool {
			return s.times[i].After(cutoff)
		})
		if idx == 0 {
			continue
		}
		removed += idx

		if idx == len(s.times) {
			delete(l.all, name)
			continue
		}
		if idx > len(s.times)/2 {
			s.times = append([]time.Time(nil), s.times[idx:]...)
			s.latencies = append([]time.Duration(nil), s.latencies[idx:]...)
			s.oks = append([]bool(nil), s.oks[idx:]...)
		} else {
			s.times = s.times[idx:]
			s.latencies = s.latencies[idx:]
			s.oks = s.oks[idx:]
		}
	}
	return removed
}
