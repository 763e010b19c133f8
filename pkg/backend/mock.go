package backend

import (
	"context"
	"fmt"
	"sync"
)

// MockInvoker returns scripted responses for local runs and tests.
// Responses are keyed by backend id; an error scripted for a backend id is
// returned instead of a response.
type MockInvoker struct {
	mu              sync.Mutex
	responses       map[string][]string
	errs            map[string]error
	defaultResponse string
	calls           []MockCall
}

// MockCall records one Invoke call.
type MockCall struct {
	BackendID string
	Request   Request
}

// NewMockInvoker creates a mock invoker with a default response.
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		responses:       make(map[string][]string),
		errs:            make(map[string]error),
		defaultResponse: "mock response",
	}
}

// Respond queues responses for a backend id, consumed in order. The last
// response is repeated once the queue drains.
func (m *MockInvoker) Respond(backendID string, responses ...string) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[backendID] = append(m.responses[backendID], responses...)
	return m
}

// Fail makes every call to the backend id return the given error.
func (m *MockInvoker) Fail(backendID string, err error) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[backendID] = err
	return m
}

// Calls returns a copy of all recorded calls.
func (m *MockInvoker) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Invoke returns the scripted response or error for the backend id.
func (m *MockInvoker) Invoke(_ context.Context, backendID string, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{BackendID: backendID, Request: req})

	if err, ok := m.errs[backendID]; ok {
		return nil, err
	}

	queue := m.responses[backendID]
	if len(queue) == 0 {
		text := fmt.Sprintf("%s: %s", m.defaultResponse, backendID)
		return &Response{Text: text}, nil
	}

	text := queue[0]
	if len(queue) > 1 {
		m.responses[backendID] = queue[1:]
	}
	return &Response{Text: text, Usage: Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20}}, nil
}
