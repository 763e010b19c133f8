// Package tools exposes the workflow's named operations as a closed set of
// typed request/response variants, validated before dispatch. It mirrors an
// RPC contract without committing to a wire protocol.
package tools

import (
	"fmt"
	"strings"

	"github.com/zen-systems/lattice/pkg/report"
	"github.com/zen-systems/lattice/pkg/tracker"
	"github.com/zen-systems/lattice/pkg/workflow"
)

// ValidationError reports a malformed tool argument. It is returned to the
// caller directly; nothing is dispatched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AnalyzeRequest asks for a conversation thread to be parsed into a bug
// report, with a duplicate check against the tracker.
type AnalyzeRequest struct {
	ChannelID    string                       `json:"channel_id"`
	ThreadID     string                       `json:"thread_id"`
	Conversation []report.ConversationMessage `json:"conversation"`
}

func (r *AnalyzeRequest) validate() error {
	if strings.TrimSpace(r.ChannelID) == "" {
		return &ValidationError{Field: "channel_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.ThreadID) == "" {
		return &ValidationError{Field: "thread_id", Reason: "must not be empty"}
	}
	if len(r.Conversation) == 0 {
		return &ValidationError{Field: "conversation", Reason: "must contain at least one message"}
	}
	for i, m := range r.Conversation {
		if strings.TrimSpace(m.Text) == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("conversation[%d].text", i),
				Reason: "must not be empty",
			}
		}
	}
	return nil
}

type AnalyzeResponse struct {
	WorkflowID    string            `json:"workflow_id"`
	Report        *report.BugReport `json:"report"`
	SimilarIssues []tracker.Issue   `json:"similar_issues,omitempty"`
}

// PlanFixRequest asks for a change target and candidate patch for an
// already-parsed bug report.
type PlanFixRequest struct {
	WorkflowID string            `json:"workflow_id"`
	Report     *report.BugReport `json:"report"`
}

func (r *PlanFixRequest) validate() error {
	if r.Report == nil {
		return &ValidationError{Field: "report", Reason: "must be present"}
	}
	if strings.TrimSpace(r.Report.Title) == "" {
		return &ValidationError{Field: "report.title", Reason: "must not be empty"}
	}
	return nil
}

type PlanFixResponse struct {
	Location *workflow.LocationResult `json:"location"`
	Fix      *workflow.PatchResult    `json:"fix,omitempty"`
}

// CreateTicketRequest files a bug report with the issue tracker.
type CreateTicketRequest struct {
	Report *report.BugReport `json:"report"`
}

func (r *CreateTicketRequest) validate() error {
	if r.Report == nil {
		return &ValidationError{Field: "report", Reason: "must be present"}
	}
	if strings.TrimSpace(r.Report.Title) == "" {
		return &ValidationError{Field: "report.title", Reason: "must not be empty"}
	}
	return nil
}

type CreateTicketResponse struct {
	Issue tracker.Issue `json:"issue"`
}

// BranchAndReviewRequest delivers a generated fix: branch, commits, and a
// review request linking back to an existing ticket.
type BranchAndReviewRequest struct {
	IssueKey string                `json:"issue_key"`
	IssueURL string                `json:"issue_url,omitempty"`
	Report   *report.BugReport     `json:"report"`
	Fix      *workflow.PatchResult `json:"fix"`
}

func (r *BranchAndReviewRequest) validate() error {
	if strings.TrimSpace(r.IssueKey) == "" {
		return &ValidationError{Field: "issue_key", Reason: "must not be empty"}
	}
	if r.Report == nil {
		return &ValidationError{Field: "report", Reason: "must be present"}
	}
	if r.Fix == nil || len(r.Fix.Patches) == 0 {
		return &ValidationError{Field: "fix.patches", Reason: "must contain at least one patch"}
	}
	return nil
}

type BranchAndReviewResponse struct {
	ReviewURL    string `json:"review_url"`
	ReviewNumber int    `json:"review_number"`
}
