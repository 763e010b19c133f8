package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/zen-systems/lattice/pkg/backend"
	"github.com/zen-systems/lattice/pkg/router"
)

func testRouter() *router.Router {
	return router.New("test", []router.Rule{
		router.NewTaskRule("tasks", map[string]router.Decision{
			"analyze": router.Backend("primary/model"),
		}),
	}, "default/model")
}

func TestCompleteRoutesAndInvokes(t *testing.T) {
	mock := backend.NewMockInvoker().Respond("primary/model", "reply text")
	c := NewCaller(testRouter(), mock, "fallback/model")

	result, err := c.Complete(context.Background(), "analyze", router.Features{}, backend.Request{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if result.Text != "reply text" {
		t.Fatalf("text = %q", result.Text)
	}
	if result.Backend != "primary/model" {
		t.Fatalf("backend = %s", result.Backend)
	}
	if result.FallbackUsed {
		t.Fatal("fallback should not have been used")
	}
	if result.Decision.MatchedRule != "tasks" {
		t.Fatalf("matched rule = %s", result.Decision.MatchedRule)
	}
}

func TestCompleteRetriesOnceOnFallback(t *testing.T) {
	mock := backend.NewMockInvoker().
		Fail("primary/model", errors.New("rate limited")).
		Respond("fallback/model", "fallback reply")
	c := NewCaller(testRouter(), mock, "fallback/model")

	result, err := c.Complete(context.Background(), "analyze", router.Features{}, backend.Request{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !result.FallbackUsed {
		t.Fatal("expected fallback to be used")
	}
	if result.Backend != "fallback/model" {
		t.Fatalf("backend = %s", result.Backend)
	}
	if result.Text != "fallback reply" {
		t.Fatalf("text = %q", result.Text)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected exactly 2 invocations, got %d", len(calls))
	}
	if calls[0].BackendID != "primary/model" || calls[1].BackendID != "fallback/model" {
		t.Fatalf("unexpected call order: %+v", calls)
	}
}

func TestCompleteSurfacesErrorWhenFallbackAlsoFails(t *testing.T) {
	primaryErr := errors.New("primary down")
	mock := backend.NewMockInvoker().
		Fail("primary/model", primaryErr).
		Fail("fallback/model", errors.New("fallback down"))
	c := NewCaller(testRouter(), mock, "fallback/model")

	_, err := c.Complete(context.Background(), "analyze", router.Features{}, backend.Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, primaryErr) {
		t.Fatalf("primary error should be wrapped, got %v", err)
	}
	if len(mock.Calls()) != 2 {
		t.Fatalf("expected exactly 2 invocations, got %d", len(mock.Calls()))
	}
}

func TestCompleteNoFallbackConfigured(t *testing.T) {
	mock := backend.NewMockInvoker().Fail("primary/model", errors.New("down"))
	c := NewCaller(testRouter(), mock, "")

	_, err := c.Complete(context.Background(), "analyze", router.Features{}, backend.Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(mock.Calls()) != 1 {
		t.Fatalf("expected a single invocation, got %d", len(mock.Calls()))
	}
}

func TestCompleteSkipsFallbackWhenSameAsSelected(t *testing.T) {
	mock := backend.NewMockInvoker().Fail("default/model", errors.New("down"))
	c := NewCaller(testRouter(), mock, "default/model")

	// No rule matches, so the router picks the default, which equals the
	// fallback: retrying the same backend would be pointless.
	_, err := c.Complete(context.Background(), "untagged", router.Features{}, backend.Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(mock.Calls()) != 1 {
		t.Fatalf("expected a single invocation, got %d", len(mock.Calls()))
	}
}
