package alerts

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/collectors"
)

// UpdateSource raises an informational alert when the update collector's
// last record says a newer agent CLI version is available. It reads the
// registry snapshot only and never triggers a collection itself.
type UpdateSource struct {
	Registry *collectors.Registry

	// CollectorName is the registry entry to read. Empty means "update".
	CollectorName string
}

// Name implements Source.
func (s *UpdateSource) Name() string { return "update" }

// Alerts implements Source.
func (s *UpdateSource) Alerts(ctx context.Context) ([]Alert, error) {
	name := s.CollectorName
	if name == "" {
		name = "update"
	}

	res, ok := s.Registry.Last(name)
	if !ok || !res.OK() {
		// No data is not a failure; the degradation monitor covers
		// persistently broken collectors.
		return nil, nil
	}

	available, _ := res.Data["update_available"].(bool)
	if !available {
		return nil, nil
	}

	latest, _ := res.Data["latest_version"].(string)
	current, _ := res.Data["current_version"].(string)

	title := "Agent CLI update available"
	if latest != "" {
		title = fmt.Sprintf("Agent CLI update available: v%s", latest)
	}
	return []Alert{{
		Severity:    SeverityInfo,
		Title:       title,
		Source:      s.Name(),
		Description: fmt.Sprintf("installed v%s, latest v%s", current, latest),
		Timestamp:   time.Now(),
		Metadata: map[string]string{
			"current": current,
			"latest":  latest,
		},
	}}, nil
}
