// Package sourcehost is the source-repository boundary: file search and
// retrieval, branch creation, best-effort patch application, and review
// requests. The GitHub implementation lives alongside the interface.
package sourcehost

import "context"

// File is a repository file with its search relevance.
type File struct {
	Path      string  `json:"path"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance_score"`
}

// Patch is a single file-level change. UnifiedDiff carries the change in git
// diff format; application is best-effort content replacement, so a hunk
// whose surrounding text no longer matches is skipped rather than fatal.
type Patch struct {
	Path        string `json:"path"`
	UnifiedDiff string `json:"unified_diff"`
}

// ReviewRequest is an opened review request (pull request).
type ReviewRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// SourceHost is the interface the workflow consumes.
type SourceHost interface {
	// SearchRelevantFiles returns up to max files ranked by relevance to
	// the queries.
	SearchRelevantFiles(ctx context.Context, queries []string, max int) ([]File, error)

	// GetFileContent fetches one file's full content from the base branch.
	GetFileContent(ctx context.Context, path string) (string, error)

	// CreateBranch creates a branch off base.
	CreateBranch(ctx context.Context, name, base string) error

	// ApplyPatches commits the patches to the branch. Returns the number of
	// file changes actually applied; stale patches are skipped.
	ApplyPatches(ctx context.Context, branch string, patches []Patch, commitMessage string) (int, error)

	// CreateReviewRequest opens a review request from branch into base.
	CreateReviewRequest(ctx context.Context, branch, title, body, base string) (*ReviewRequest, error)
}
