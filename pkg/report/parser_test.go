package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zen-systems/lattice/pkg/backend"
	"github.com/zen-systems/lattice/pkg/llm"
	"github.com/zen-systems/lattice/pkg/router"
)

func newTestParser(mock *backend.MockInvoker) *Parser {
	r := router.New("test", nil, "mock/model")
	return NewParser(llm.NewCaller(r, mock, ""))
}

func TestParseDecodesModelReply(t *testing.T) {
	mock := backend.NewMockInvoker().Respond("mock/model",
		`Here is the structured report:
{"title":"Checkout 504s","description":"Pay endpoint times out",
"steps_to_reproduce":["open cart","click pay"],
"expected_behavior":"fast response","actual_behavior":"504",
"severity":"critical","affected_components":["payment","gateway"],
"additional_context":"spiked after deploy"}`)

	p := newTestParser(mock)
	conversation := []ConversationMessage{
		{Author: "Dev1", Text: "checkout is broken"},
		{Author: "Dev2", Text: "504 on /api/pay"},
	}

	r, err := p.Parse(context.Background(), conversation)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Title != "Checkout 504s" {
		t.Fatalf("title = %q", r.Title)
	}
	if r.Severity != SeverityCritical {
		t.Fatalf("severity = %s", r.Severity)
	}
	if len(r.StepsToReproduce) != 2 {
		t.Fatalf("steps = %v", r.StepsToReproduce)
	}
	if len(r.AffectedComponents) != 2 || r.AffectedComponents[0] != "payment" {
		t.Fatalf("components = %v", r.AffectedComponents)
	}

	// The prompt carries the whole transcript with authors.
	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	prompt := calls[0].Request.Messages[len(calls[0].Request.Messages)-1].Content
	for _, want := range []string{"Dev1: checkout is broken", "Dev2: 504 on /api/pay"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestParseComponentsAsBareString(t *testing.T) {
	mock := backend.NewMockInvoker().Respond("mock/model",
		`{"title":"Bug","description":"d","affected_components":"payment"}`)

	r, err := newTestParser(mock).Parse(context.Background(),
		[]ConversationMessage{{Author: "Dev1", Text: "hi"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.AffectedComponents) != 1 || r.AffectedComponents[0] != "payment" {
		t.Fatalf("components = %v", r.AffectedComponents)
	}
	if r.Severity != SeverityMedium {
		t.Fatalf("missing severity should default to Medium, got %s", r.Severity)
	}
}

func TestParseEmptyTitle(t *testing.T) {
	mock := backend.NewMockInvoker().Respond("mock/model", `{"title":"  ","description":"d"}`)

	_, err := newTestParser(mock).Parse(context.Background(),
		[]ConversationMessage{{Author: "Dev1", Text: "hi"}})
	if !errors.Is(err, ErrNoTitle) {
		t.Fatalf("expected ErrNoTitle, got %v", err)
	}
}

func TestParseNonJSONReply(t *testing.T) {
	mock := backend.NewMockInvoker().Respond("mock/model", "I could not find a bug here.")

	_, err := newTestParser(mock).Parse(context.Background(),
		[]ConversationMessage{{Author: "Dev1", Text: "hi"}})
	if err == nil {
		t.Fatal("expected error for non-JSON reply")
	}
}

func TestParseTransportError(t *testing.T) {
	mock := backend.NewMockInvoker().Fail("mock/model", errors.New("backend down"))

	_, err := newTestParser(mock).Parse(context.Background(),
		[]ConversationMessage{{Author: "Dev1", Text: "hi"}})
	if err == nil {
		t.Fatal("expected transport error to propagate")
	}
}

func TestParseEmptyConversation(t *testing.T) {
	_, err := newTestParser(backend.NewMockInvoker()).Parse(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for empty conversation")
	}
}
