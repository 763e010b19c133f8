package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

type fakeProvider struct {
	name string
	resp *Response
	err  error

	gotModel string
}

func (f *fakeProvider) Generate(_ context.Context, model string, _ Request) (*Response, error) {
	f.gotModel = model
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Models() []string { return []string{"m1"} }

func TestSplitBackendID(t *testing.T) {
	tests := []struct {
		id           string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{"anthropic/claude-3-5-sonnet-latest", "anthropic", "claude-3-5-sonnet-latest", false},
		{"google/models/gemini-2.0-flash", "google", "models/gemini-2.0-flash", false},
		{"gpt-4o", "", "", true},
		{"/gpt-4o", "", "", true},
		{"openai/", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		provider, model, err := SplitBackendID(tt.id)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SplitBackendID(%q): expected error, got %q/%q", tt.id, provider, model)
			}
			continue
		}
		if err != nil {
			t.Errorf("SplitBackendID(%q): unexpected error: %v", tt.id, err)
			continue
		}
		if provider != tt.wantProvider || model != tt.wantModel {
			t.Errorf("SplitBackendID(%q) = %q/%q, want %q/%q",
				tt.id, provider, model, tt.wantProvider, tt.wantModel)
		}
	}
}

func TestRegistryInvokeDispatchesByPrefix(t *testing.T) {
	p := &fakeProvider{name: "openai", resp: &Response{Text: "ok"}}
	reg := NewRegistry(p)

	resp, err := reg.Invoke(context.Background(), "openai/gpt-4o", Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("expected text %q, got %q", "ok", resp.Text)
	}
	if p.gotModel != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", p.gotModel)
	}
}

func TestRegistryInvokeErrors(t *testing.T) {
	reg := NewRegistry(&fakeProvider{name: "openai", resp: &Response{Text: "ok"}})
	msgs := []Message{{Role: RoleUser, Content: "hi"}}

	tests := []struct {
		name      string
		backendID string
		req       Request
	}{
		{"malformed id", "gpt-4o", Request{Messages: msgs}},
		{"unknown provider", "anthropic/claude-3-5-sonnet-latest", Request{Messages: msgs}},
		{"no messages", "openai/gpt-4o", Request{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Invoke(context.Background(), tt.backendID, tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			var invErr *InvocationError
			if !errors.As(err, &invErr) {
				t.Fatalf("expected *InvocationError, got %T: %v", err, err)
			}
		})
	}
}

func TestRegistryInvokeWrapsProviderErrorsOnce(t *testing.T) {
	plain := &fakeProvider{name: "plain", err: fmt.Errorf("connection reset")}
	already := &fakeProvider{name: "typed", err: &InvocationError{
		Backend: "typed/m1", Status: 429, Err: fmt.Errorf("rate limited"),
	}}
	reg := NewRegistry(plain, already)
	req := Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}}

	_, err := reg.Invoke(context.Background(), "plain/m1", req)
	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *InvocationError, got %T", err)
	}
	if invErr.Backend != "plain/m1" {
		t.Errorf("expected backend plain/m1, got %q", invErr.Backend)
	}

	_, err = reg.Invoke(context.Background(), "typed/m1", req)
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *InvocationError, got %T", err)
	}
	if invErr.Status != 429 {
		t.Errorf("provider's own InvocationError should pass through, got status %d", invErr.Status)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"plain error", fmt.Errorf("bad request"), false},
		{"net timeout", &net.DNSError{Err: "lookup timeout", IsTimeout: true}, true},
		{"marked temporary", &InvocationError{Temporary: true, Err: fmt.Errorf("overloaded")}, true},
		{"rate limited", &InvocationError{Status: 429, Err: fmt.Errorf("too many requests")}, true},
		{"server error", &InvocationError{Status: 503, Err: fmt.Errorf("unavailable")}, true},
		{"client error", &InvocationError{Status: 400, Err: fmt.Errorf("bad prompt")}, false},
		{"wrapped transient", fmt.Errorf("invoke: %w", &InvocationError{Status: 500, Err: fmt.Errorf("boom")}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
