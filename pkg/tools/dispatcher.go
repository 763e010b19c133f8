package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zen-systems/lattice/pkg/tracker"
	"github.com/zen-systems/lattice/pkg/workflow"
)

// Operation names accepted by Dispatch.
const (
	OpAnalyze         = "analyze_request"
	OpPlanFix         = "plan_fix"
	OpCreateTicket    = "create_ticket"
	OpBranchAndReview = "create_branch_and_review_request"
)

// Dispatcher routes validated tool requests to the orchestrator's step-level
// entry points.
type Dispatcher struct {
	orc *workflow.Orchestrator
}

func NewDispatcher(orc *workflow.Orchestrator) *Dispatcher {
	return &Dispatcher{orc: orc}
}

// Dispatch decodes a raw payload for a named operation, validates it, and
// runs it. Unknown operations and malformed payloads come back as
// *ValidationError, never a panic.
func (d *Dispatcher) Dispatch(ctx context.Context, operation string, payload []byte) (any, error) {
	switch operation {
	case OpAnalyze:
		var req AnalyzeRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return d.Analyze(ctx, &req)
	case OpPlanFix:
		var req PlanFixRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return d.PlanFix(ctx, &req)
	case OpCreateTicket:
		var req CreateTicketRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return d.CreateTicket(ctx, &req)
	case OpBranchAndReview:
		var req BranchAndReviewRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return d.BranchAndReview(ctx, &req)
	default:
		return nil, &ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", operation)}
	}
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return &ValidationError{Field: "payload", Reason: err.Error()}
	}
	return nil
}

func (d *Dispatcher) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	bugReport, similar, err := d.orc.Analyze(ctx, req.Conversation)
	if err != nil {
		return nil, err
	}
	return &AnalyzeResponse{
		WorkflowID:    workflow.WorkflowID(req.ChannelID, req.ThreadID),
		Report:        bugReport,
		SimilarIssues: similar,
	}, nil
}

func (d *Dispatcher) PlanFix(ctx context.Context, req *PlanFixRequest) (*PlanFixResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	workflowID := req.WorkflowID
	if workflowID == "" {
		workflowID = "adhoc"
	}
	location, fix := d.orc.PlanFix(ctx, workflowID, req.Report)
	return &PlanFixResponse{Location: location, Fix: fix}, nil
}

func (d *Dispatcher) CreateTicket(ctx context.Context, req *CreateTicketRequest) (*CreateTicketResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	issue, err := d.orc.CreateTicket(ctx, req.Report)
	if err != nil {
		return nil, err
	}
	return &CreateTicketResponse{Issue: *issue}, nil
}

func (d *Dispatcher) BranchAndReview(ctx context.Context, req *BranchAndReviewRequest) (*BranchAndReviewResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	issue := &tracker.Issue{Key: req.IssueKey, URL: req.IssueURL}
	pr, err := d.orc.OpenReviewRequest(ctx, issue, req.Report, req.Fix)
	if err != nil {
		return nil, err
	}
	return &BranchAndReviewResponse{ReviewURL: pr.URL, ReviewNumber: pr.Number}, nil
}
