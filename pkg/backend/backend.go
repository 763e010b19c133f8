package backend

import (
	"context"
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const defaultMaxTokens = 4096

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a prompt plus generation parameters.
type Request struct {
	Messages []Message
	// MaxTokens caps the completion length. Zero means the provider default.
	MaxTokens int
	// Temperature is applied only when positive.
	Temperature float64
}

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response wraps a provider's output and usage metadata.
type Response struct {
	Text  string
	Usage Usage
}

// Invoker executes a request against a backend identified by a string id of
// the form "provider/model".
type Invoker interface {
	Invoke(ctx context.Context, backendID string, req Request) (*Response, error)
}

// Provider is a single model vendor behind the Invoker.
type Provider interface {
	// Generate sends a request to the given model and returns the response.
	Generate(ctx context.Context, model string, req Request) (*Response, error)

	// Name returns the provider's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// SplitBackendID splits "provider/model" into its parts. Model names may
// themselves contain slashes.
func SplitBackendID(backendID string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(backendID, "/")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("invalid backend id %q: want provider/model", backendID)
	}
	return provider, model, nil
}

// Registry dispatches requests to providers by backend id prefix.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry over the given providers.
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Provider returns a provider by name.
func (r *Registry) Provider(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Providers returns the registered provider names.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Invoke routes the request to the provider named in the backend id.
func (r *Registry) Invoke(ctx context.Context, backendID string, req Request) (*Response, error) {
	provider, model, err := SplitBackendID(backendID)
	if err != nil {
		return nil, &InvocationError{Backend: backendID, Err: err}
	}
	p, ok := r.providers[provider]
	if !ok {
		return nil, &InvocationError{Backend: backendID, Err: fmt.Errorf("provider %q not configured", provider)}
	}
	if len(req.Messages) == 0 {
		return nil, &InvocationError{Backend: backendID, Err: fmt.Errorf("request has no messages")}
	}
	resp, err := p.Generate(ctx, model, req)
	if err != nil {
		var invErr *InvocationError
		if ok := asInvocationError(err, &invErr); ok {
			return nil, err
		}
		return nil, &InvocationError{Backend: backendID, Err: err}
	}
	return resp, nil
}

// splitSystem separates a leading system message from the rest. Providers
// that carry the system prompt out of band use it.
func splitSystem(messages []Message) (system string, rest []Message) {
	for i, m := range messages {
		if m.Role != RoleSystem {
			return system, messages[i:]
		}
		if system != "" {
			system += "\n"
		}
		system += m.Content
	}
	return system, nil
}

func maxTokensOrDefault(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
