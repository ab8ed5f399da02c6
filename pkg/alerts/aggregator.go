package alerts

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Source produces alerts from one upstream signal (CI runs, context
// usage, update notices). Implementations may block on external
// processes; they must honor ctx.
type Source interface {
	// Name identifies the source in reports and error summaries.
	Name() string

	// Alerts returns this source's current findings. An empty slice
	// means "nothing to report" and is not an error.
	Alerts(ctx context.Context) ([]Alert, error)
}

// Aggregator merges alerts from a fixed set of sources.
type Aggregator struct {
	sources []Source

	// now is swappable for tests.
	now func() time.Time
}

// NewAggregator builds an aggregator over the given sources. Source
// order is preserved for alerts of equal severity.
func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources, now: time.Now}
}

// Collect runs every source sequentially and merges the results. A
// failing or panicking source is recorded in Report.SourceErrors and
// contributes nothing; the remaining sources still contribute. The
// returned alert list is stable-sorted ascending by severity ordinal.
func (a *Aggregator) Collect(ctx context.Context) Report {
	report := Report{
		Summary:     zeroSummary(),
		CollectedAt: a.now(),
	}

	for _, src := range a.sources {
		found, err := runSource(ctx, src)
		if err != nil {
			if report.SourceErrors == nil {
				report.SourceErrors = make(map[string]string)
			}
			report.SourceErrors[src.Name()] = err.Error()
			continue
		}
		report.Alerts = append(report.Alerts, found...)
	}

	sort.SliceStable(report.Alerts, func(i, j int) bool {
		return report.Alerts[i].Severity < report.Alerts[j].Severity
	})

	for _, al := range report.Alerts {
		report.Summary[al.Severity]++
	}
	report.Total = len(report.Alerts)

	return report
}

// runSource invokes one source, converting a panic into an error so a
// broken source cannot take down the aggregation pass.
func runSource(ctx context.Context, src Source) (found []Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			found = nil
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()
	return src.Alerts(ctx)
}

// zeroSummary returns a summary with every severity key present.
func zeroSummary() map[Severity]int {
	return map[Severity]int{
		SeverityCritical: 0,
		SeverityHigh:     0,
		SeverityMedium:   0,
		SeverityLow:      0,
		SeverityInfo:     0,
	}
}
