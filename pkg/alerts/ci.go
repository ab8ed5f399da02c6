package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/command"
)

// Repo identifies a repository whose CI runs are watched.
type Repo struct {
	Owner string
	Name  string

	// DefaultBranch is the branch whose failures are treated as
	// critical. Usually "main".
	DefaultBranch string
}

// Slug returns the owner/name form used by the gh CLI.
func (r Repo) Slug() string { return r.Owner + "/" + r.Name }

// WorkflowRun is one CI run record as reported by the lister.
type WorkflowRun struct {
	Name       string    `json:"name"`
	Conclusion string    `json:"conclusion"`
	HeadBranch string    `json:"headBranch"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
	ID         int64     `json:"databaseId"`
}

// RunLister fetches recent workflow runs for a repository. The
// production implementation shells out to the gh CLI; tests inject a
// stub.
type RunLister interface {
	LatestRun(ctx context.Context, repo Repo) (WorkflowRun, error)
}

// CISource turns failed CI runs into alerts: one alert per watched
// repository whose most recent run concluded "failure". Failures on the
// repository's default branch are critical, anywhere else high.
type CISource struct {
	Repos  []Repo
	Lister RunLister
}

// Name implements Source.
func (s *CISource) Name() string { return "ci" }

// Alerts implements Source.
func (s *CISource) Alerts(ctx context.Context) ([]Alert, error) {
	var found []Alert
	for _, repo := range s.Repos {
		run, err := s.Lister.LatestRun(ctx, repo)
		if err != nil {
			return nil, fmt.Errorf("list runs for %s: %w", repo.Slug(), err)
		}
		if run.Conclusion != "failure" {
			continue
		}

		severity := SeverityHigh
		if run.HeadBranch == repo.DefaultBranch {
			severity = SeverityCritical
		}
		found = append(found, Alert{
			Severity:    severity,
			Title:       fmt.Sprintf("CI failure: %s", run.Name),
			Source:      s.Name(),
			Description: fmt.Sprintf("%s failed on %s", run.Name, run.HeadBranch),
			URL:         run.URL,
			Timestamp:   run.CreatedAt,
			Metadata: map[string]string{
				"repo":   repo.Slug(),
				"branch": run.HeadBranch,
			},
		})
	}
	return found, nil
}

// GHRunLister lists workflow runs via the gh CLI.
type GHRunLister struct {
	// Binary is the gh executable name. Empty means "gh".
	Binary string

	// Runner executes the CLI. A nil runner uses a default-timeout one.
	Runner *command.Runner
}

// LatestRun implements RunLister by asking gh for the most recent run.
func (l *GHRunLister) LatestRun(ctx context.Context, repo Repo) (WorkflowRun, error) {
	binary := l.Binary
	if binary == "" {
		binary = "gh"
	}
	runner := l.Runner
	if runner == nil {
		runner = &command.Runner{}
	}

	out := runner.Run(ctx, binary,
		"run", "list",
		"--repo", repo.Slug(),
		"--limit", "1",
		"--json", "name,conclusion,headBranch,url,createdAt,databaseId",
	)
	if out.Err != nil {
		return WorkflowRun{}, fmt.Errorf("gh run list: %w", out.Err)
	}

	var runs []WorkflowRun
	if err := json.Unmarshal([]byte(out.Stdout), &runs); err != nil {
		return WorkflowRun{}, fmt.Errorf("decode gh run list output: %w", err)
	}
	if len(runs) == 0 {
		return WorkflowRun{}, nil
	}
	return runs[0], nil
}
