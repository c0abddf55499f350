package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Request captures one generation call: the fully assembled prompt plus the
// sampling bounds from the agent's configuration.
type Request struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Response is the completed generation.
type Response struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
	Model      string `json:"model"`
}

// Provider is the minimal interface handlers use to drive text generation.
type Provider interface {
	Generate(ctx context.Context, req Request) (Response, error)

	// Name identifies the provider ("anthropic", "openai", "mock").
	Name() string
}

// ProviderError wraps any failure from a vendor SDK: quota exhaustion,
// timeouts, malformed responses. Retriable hints let callers distinguish
// transient rate limits from hard failures; the original SDK error is
// preserved as the cause.
type ProviderError struct {
	Provider  string
	Msg       string
	Retriable bool
	Cause     error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Msg, e.Cause)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Msg)
}

// Unwrap exposes the SDK error to errors.Is / errors.As.
func (e *ProviderError) Unwrap() error { return e.Cause }

// NewProviderError constructs a ProviderError wrapping cause.
func NewProviderError(provider, msg string, retriable bool, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Msg: msg, Retriable: retriable, Cause: cause}
}

// MockProvider is a lightweight in-memory Provider useful for tests and
// examples. Responses are matched by prompt substring; unmatched prompts get
// a canned echo. A non-nil Err makes every call fail.
type MockProvider struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     int
}

// NewMockProvider constructs a MockProvider with no canned responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{responses: map[string]string{}}
}

// WithResponse registers a canned response returned when the prompt contains
// the given substring. Returns the provider for chaining.
func (m *MockProvider) WithResponse(promptContains, response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[promptContains] = response
	return m
}

// FailWith makes every subsequent Generate call return err wrapped as a
// ProviderError.
func (m *MockProvider) FailWith(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Generate implements Provider.
func (m *MockProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, NewProviderError("mock", "context cancelled", false, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return Response{}, NewProviderError("mock", "generation failed", true, m.err)
	}
	for substr, resp := range m.responses {
		if substr != "" && strings.Contains(req.Prompt, substr) {
			return Response{Text: resp, TokensUsed: len(resp) / 4, Model: "mock"}, nil
		}
	}
	return Response{Text: "mock response: " + req.Prompt, TokensUsed: len(req.Prompt) / 4, Model: "mock"}, nil
}

// Name implements Provider.
func (m *MockProvider) Name() string { return "mock" }

// Calls returns how many times Generate has been invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
