// Package workflow drives the bug-report pipeline: parse, duplicate-check,
// code-context gathering, change-target location, patch generation, ticket
// creation, and review-request creation. Runs always terminate with a final
// result and a full step trace; irreversible actions are gated on upstream
// confidence thresholds, and failures after ticket creation degrade the
// outcome instead of failing the run.
package workflow

import (
	"time"

	"github.com/zen-systems/lattice/pkg/report"
	"github.com/zen-systems/lattice/pkg/sourcehost"
	"github.com/zen-systems/lattice/pkg/tracker"
)

// Status is a workflow state. The run's status always reflects the most
// recently appended step.
type Status string

const (
	StatusStarted               Status = "started"
	StatusParsing               Status = "parsing"
	StatusDuplicateCheck        Status = "duplicate_check"
	StatusAnalyzingCodebase     Status = "analyzing_codebase"
	StatusLocatingTarget        Status = "locating_target"
	StatusGeneratingPatch       Status = "generating_patch"
	StatusCreatingTicket        Status = "creating_ticket"
	StatusCreatingReviewRequest Status = "creating_review_request"
	StatusCompleted             Status = "completed"
	StatusFailed                Status = "failed"
)

// Terminal reports whether no further steps may be appended.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepRecord is one appended trace entry. Immutable once appended.
type StepRecord struct {
	Status    Status         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Run is the trace of one workflow execution. Steps are append-only.
type Run struct {
	ID        string       `json:"workflow_id"`
	Status    Status       `json:"status"`
	StartedAt time.Time    `json:"started_at"`
	Steps     []StepRecord `json:"steps"`
}

// Target is one candidate change location.
type Target struct {
	Path         string `json:"path"`
	AnchorBefore string `json:"anchor_before,omitempty"`
	AnchorAfter  string `json:"anchor_after,omitempty"`
	Reason       string `json:"reason"`
}

// LocationResult is the structured output of the locate step.
type LocationResult struct {
	Targets    []Target `json:"targets"`
	Confidence float64  `json:"confidence"`
}

// Usable reports whether the location clears the confidence gate.
func (l *LocationResult) Usable(threshold float64) bool {
	return l != nil && l.Confidence >= threshold && len(l.Targets) > 0
}

// PatchResult is the structured output of the patch-generation step.
type PatchResult struct {
	Patches       []sourcehost.Patch `json:"patches"`
	CommitMessage string             `json:"commit_message"`
	Confidence    float64            `json:"confidence"`
}

// Usable reports whether the patch clears the confidence gate.
func (p *PatchResult) Usable(threshold float64) bool {
	return p != nil && p.Confidence >= threshold && len(p.Patches) > 0
}

// Result is the final outcome of a workflow run. Success means the ticket
// was created; a missing PRURL on a successful run is a degraded completion,
// not a failure.
type Result struct {
	Success       bool            `json:"success"`
	WorkflowID    string          `json:"workflow_id"`
	IssueKey      string          `json:"issue_key,omitempty"`
	IssueURL      string          `json:"issue_url,omitempty"`
	PRURL         string          `json:"pr_url,omitempty"`
	BugTitle      string          `json:"bug_title,omitempty"`
	Severity      report.Severity `json:"severity,omitempty"`
	SimilarIssues []tracker.Issue `json:"similar_issues,omitempty"`
	Error         string          `json:"error,omitempty"`
	Message       string          `json:"message"`
}

// WorkflowID derives the run identifier from the conversation thread.
func WorkflowID(channelID, threadID string) string {
	return channelID + "_" + threadID
}
