// Package tracker is the issue-tracker boundary. The orchestrator only sees
// the Tracker interface; the Jira implementation lives alongside it.
package tracker

import (
	"context"

	"github.com/zen-systems/lattice/pkg/report"
)

// Issue is a simplified tracker issue.
type Issue struct {
	Key     string `json:"key"`
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
	URL     string `json:"url"`
}

// Tracker is the interface the workflow consumes.
type Tracker interface {
	// SearchSimilar returns issues whose summaries resemble the title.
	SearchSimilar(ctx context.Context, title string, limit int) ([]Issue, error)

	// CreateIssue files a bug issue from the report.
	CreateIssue(ctx context.Context, r *report.BugReport) (*Issue, error)

	// AddComment appends a comment to an existing issue.
	AddComment(ctx context.Context, issueKey, body string) error
}
