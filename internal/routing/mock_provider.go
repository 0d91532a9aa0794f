package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// Step is one scripted reply of a MockProvider.
type Step struct {
	// Err is returned instead of a response when set.
	Err error

	// Delay is slept before replying. The request context cuts it short.
	Delay time.Duration

	// Content overrides the response content.
	Content string
}

// MockProvider is a scripted implementation of the Provider interface for
// testing. Each Complete call consumes the next step; once the script is
// exhausted every call succeeds.
type MockProvider struct {
	name   string
	config providers.ProviderConfig

	mu     sync.Mutex
	script []Step
	calls  int
	models []string
	usage  providers.TokenUsage
}

// NewMockProvider creates a new mock provider with the given name.
func NewMockProvider(name string, script ...Step) *MockProvider {
	return &MockProvider{
		name:   name,
		config: providers.ProviderConfig{Name: name, Type: "mock"},
		script: script,
		usage:  providers.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// Script appends steps to the provider's script.
func (m *MockProvider) Script(steps ...Step) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, steps...)
	return m
}

// SetUsage sets the usage reported with every response. A zero value makes
// the provider omit usage.
func (m *MockProvider) SetUsage(usage providers.TokenUsage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = usage
}

// Complete replays the next scripted step.
func (m *MockProvider) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	m.mu.Lock()
	m.calls++
	m.models = append(m.models, req.Model)
	var step Step
	if len(m.script) > 0 {
		step = m.script[0]
		m.script = m.script[1:]
	}
	usage := m.usage
	calls := m.calls
	m.mu.Unlock()

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, &providers.TimeoutError{Provider: m.name, Timeout: step.Delay}
		}
	}

	if step.Err != nil {
		return nil, step.Err
	}

	content := step.Content
	if content == "" {
		content = fmt.Sprintf("%s response %d", m.name, calls)
	}
	return &providers.CompletionResponse{
		ID:           fmt.Sprintf("%s-%d", m.name, calls),
		Model:        req.Model,
		Content:      content,
		FinishReason: "stop",
		Usage:        usage,
	}, nil
}

// Calls returns how many times Complete was called.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Models returns the model ids Complete was called with, in order.
func (m *MockProvider) Models() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.models...)
}

// GetName returns the provider name.
func (m *MockProvider) GetName() string {
	return m.name
}

// GetType returns the provider type.
func (m *MockProvider) GetType() string {
	return "mock"
}

// GetConfig returns the provider configuration.
func (m *MockProvider) GetConfig() providers.ProviderConfig {
	return m.config
}

// Close closes the provider.
func (m *MockProvider) Close() error {
	return nil
}

// Registry is a fixed set of providers keyed by name.
type Registry map[string]providers.Provider

// GetProvider returns the named provider.
func (r Registry) GetProvider(name string) (providers.Provider, error) {
	p, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found", name)
	}
	return p, nil
}
