// Package llm pairs the router with a backend invoker. The router itself
// cannot fail; invocation can, and the policy lives here: a failed call is
// retried exactly once against one fixed, always-available fallback backend
// before the error is surfaced to the caller.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zen-systems/lattice/pkg/backend"
	"github.com/zen-systems/lattice/pkg/router"
)

// Caller routes tasks to backends and executes them.
type Caller struct {
	router   *router.Router
	invoker  backend.Invoker
	fallback string
}

// Result is a completed backend call plus its routing provenance.
type Result struct {
	Text         string
	Backend      string
	Decision     router.RoutingDecision
	FallbackUsed bool
	Usage        backend.Usage
}

// NewCaller creates a caller. fallbackBackend is used when the routed
// backend's invocation fails; an empty value disables the fallback retry.
func NewCaller(r *router.Router, invoker backend.Invoker, fallbackBackend string) *Caller {
	return &Caller{router: r, invoker: invoker, fallback: fallbackBackend}
}

// Router returns the caller's router.
func (c *Caller) Router() *router.Router { return c.router }

// Complete routes the task, invokes the selected backend, and falls back
// once on invocation failure.
func (c *Caller) Complete(ctx context.Context, task string, f router.Features, req backend.Request) (*Result, error) {
	decision := c.router.Decide(task, f)

	slog.Debug("routing decision",
		"task", task,
		"backend", decision.SelectedBackend,
		"matched_rule", decision.MatchedRule)

	resp, err := c.invoke(ctx, decision.SelectedBackend, task, req)
	if err == nil {
		return &Result{
			Text:     resp.Text,
			Backend:  decision.SelectedBackend,
			Decision: decision,
			Usage:    resp.Usage,
		}, nil
	}

	if c.fallback == "" || c.fallback == decision.SelectedBackend {
		return nil, fmt.Errorf("invoke %s for task %s: %w", decision.SelectedBackend, task, err)
	}

	slog.Warn("backend invocation failed, retrying on fallback",
		"task", task,
		"backend", decision.SelectedBackend,
		"fallback", c.fallback,
		"transient", backend.IsTransient(err),
		"error", err)
	fallbacksTotal.WithLabelValues(task).Inc()

	resp, fbErr := c.invoke(ctx, c.fallback, task, req)
	if fbErr != nil {
		return nil, fmt.Errorf("invoke %s for task %s (fallback %s also failed: %v): %w",
			decision.SelectedBackend, task, c.fallback, fbErr, err)
	}

	return &Result{
		Text:         resp.Text,
		Backend:      c.fallback,
		Decision:     decision,
		FallbackUsed: true,
		Usage:        resp.Usage,
	}, nil
}

func (c *Caller) invoke(ctx context.Context, backendID, task string, req backend.Request) (*backend.Response, error) {
	start := time.Now()
	resp, err := c.invoker.Invoke(ctx, backendID, req)
	usage := tokenUsage{}
	if resp != nil {
		usage = tokenUsage{prompt: resp.Usage.PromptTokens, completion: resp.Usage.CompletionTokens}
	}
	observeRequest(backendID, task, usage, err, time.Since(start).Seconds())
	return resp, err
}
