package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/lattice/pkg/backend"
	"github.com/zen-systems/lattice/pkg/llm"
	"github.com/zen-systems/lattice/pkg/report"
	"github.com/zen-systems/lattice/pkg/router"
	"github.com/zen-systems/lattice/pkg/sourcehost"
	"github.com/zen-systems/lattice/pkg/tracker"
	"github.com/zen-systems/lattice/pkg/workflow"
)

type stubTracker struct {
	issue    *tracker.Issue
	comments []string
}

func (s *stubTracker) SearchSimilar(_ context.Context, _ string, _ int) ([]tracker.Issue, error) {
	return []tracker.Issue{{Key: "LAT-1", Summary: "existing"}}, nil
}

func (s *stubTracker) CreateIssue(_ context.Context, _ *report.BugReport) (*tracker.Issue, error) {
	return s.issue, nil
}

func (s *stubTracker) AddComment(_ context.Context, key, body string) error {
	s.comments = append(s.comments, key+": "+body)
	return nil
}

type stubHost struct {
	pr *sourcehost.ReviewRequest
}

func (s *stubHost) SearchRelevantFiles(_ context.Context, _ []string, _ int) ([]sourcehost.File, error) {
	return nil, nil
}

func (s *stubHost) GetFileContent(_ context.Context, _ string) (string, error) {
	return "func pay() {}", nil
}

func (s *stubHost) CreateBranch(_ context.Context, _, _ string) error { return nil }

func (s *stubHost) ApplyPatches(_ context.Context, _ string, patches []sourcehost.Patch, _ string) (int, error) {
	return len(patches), nil
}

func (s *stubHost) CreateReviewRequest(_ context.Context, _, _, _, _ string) (*sourcehost.ReviewRequest, error) {
	return s.pr, nil
}

func newTestDispatcher(t *testing.T, mock *backend.MockInvoker, trk tracker.Tracker, host sourcehost.SourceHost) *Dispatcher {
	t.Helper()
	r := router.New("test", nil, "mock/model")
	caller := llm.NewCaller(r, mock, "")
	orc := workflow.New(caller, trk, host, workflow.NewStore(8), nil)
	return NewDispatcher(orc)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		validate  func() error
		wantField string
	}{
		{
			name: "analyze missing channel",
			validate: func() error {
				r := AnalyzeRequest{ThreadID: "t", Conversation: []report.ConversationMessage{{Author: "a", Text: "x"}}}
				return r.validate()
			},
			wantField: "channel_id",
		},
		{
			name: "analyze empty conversation",
			validate: func() error {
				r := AnalyzeRequest{ChannelID: "c", ThreadID: "t"}
				return r.validate()
			},
			wantField: "conversation",
		},
		{
			name: "analyze blank message text",
			validate: func() error {
				r := AnalyzeRequest{ChannelID: "c", ThreadID: "t",
					Conversation: []report.ConversationMessage{{Author: "a", Text: "  "}}}
				return r.validate()
			},
			wantField: "conversation[0].text",
		},
		{
			name: "plan fix missing report",
			validate: func() error {
				r := PlanFixRequest{}
				return r.validate()
			},
			wantField: "report",
		},
		{
			name: "create ticket blank title",
			validate: func() error {
				r := CreateTicketRequest{Report: &report.BugReport{Title: " "}}
				return r.validate()
			},
			wantField: "report.title",
		},
		{
			name: "branch and review missing fix",
			validate: func() error {
				r := BranchAndReviewRequest{IssueKey: "LAT-1", Report: &report.BugReport{Title: "x"}}
				return r.validate()
			},
			wantField: "fix.patches",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate()
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestDispatchUnknownOperation(t *testing.T) {
	d := newTestDispatcher(t, backend.NewMockInvoker(), &stubTracker{}, &stubHost{})

	_, err := d.Dispatch(context.Background(), "nonexistent_tool", []byte(`{}`))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "operation", verr.Field)
}

func TestDispatchMalformedPayload(t *testing.T) {
	d := newTestDispatcher(t, backend.NewMockInvoker(), &stubTracker{}, &stubHost{})

	_, err := d.Dispatch(context.Background(), OpAnalyze, []byte(`{not json`))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payload", verr.Field)
}

func TestDispatchValidationBeforeDispatch(t *testing.T) {
	// Valid JSON, invalid fields: must come back as a validation error, not
	// reach any collaborator.
	mock := backend.NewMockInvoker()
	d := newTestDispatcher(t, mock, &stubTracker{}, &stubHost{})

	_, err := d.Dispatch(context.Background(), OpAnalyze, []byte(`{"channel_id":"c","thread_id":"t","conversation":[]}`))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, mock.Calls())
}

func TestDispatchAnalyze(t *testing.T) {
	mock := backend.NewMockInvoker().Respond("mock/model",
		`{"title":"Payment timeout","description":"d","severity":"high"}`)
	d := newTestDispatcher(t, mock, &stubTracker{}, &stubHost{})

	payload := []byte(`{"channel_id":"c","thread_id":"t","conversation":[{"author":"Dev1","text":"pay is slow"}]}`)
	result, err := d.Dispatch(context.Background(), OpAnalyze, payload)
	require.NoError(t, err)

	resp, ok := result.(*AnalyzeResponse)
	require.True(t, ok)
	assert.Equal(t, "c_t", resp.WorkflowID)
	assert.Equal(t, "Payment timeout", resp.Report.Title)
	require.Len(t, resp.SimilarIssues, 1)
	assert.Equal(t, "LAT-1", resp.SimilarIssues[0].Key)
}

func TestDispatchCreateTicket(t *testing.T) {
	trk := &stubTracker{issue: &tracker.Issue{Key: "LAT-5", URL: "https://example/browse/LAT-5"}}
	d := newTestDispatcher(t, backend.NewMockInvoker(), trk, &stubHost{})

	resp, err := d.CreateTicket(context.Background(), &CreateTicketRequest{
		Report: &report.BugReport{Title: "Payment timeout", Severity: report.SeverityHigh},
	})
	require.NoError(t, err)
	assert.Equal(t, "LAT-5", resp.Issue.Key)
}

func TestDispatchBranchAndReview(t *testing.T) {
	trk := &stubTracker{}
	host := &stubHost{pr: &sourcehost.ReviewRequest{Number: 3, URL: "https://github.com/acme/app/pull/3"}}
	d := newTestDispatcher(t, backend.NewMockInvoker(), trk, host)

	resp, err := d.BranchAndReview(context.Background(), &BranchAndReviewRequest{
		IssueKey: "LAT-5",
		Report:   &report.BugReport{Title: "Payment timeout"},
		Fix: &workflow.PatchResult{
			Patches:    []sourcehost.Patch{{Path: "pay.go", UnifiedDiff: "@@\n-a\n+b"}},
			Confidence: 0.9,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/app/pull/3", resp.ReviewURL)
	assert.Equal(t, 3, resp.ReviewNumber)
}
