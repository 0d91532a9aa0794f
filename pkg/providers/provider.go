package providers

import "context"

// Provider is the core interface that all LLM provider adapters must implement.
// It provides a unified abstraction for interacting with different LLM providers
// (OpenAI, Anthropic, local models, etc.).
//
// Complete issues exactly one upstream call. Retry, fallback and circuit
// breaking are owned by the orchestrator, which decides what to do with a
// failure by passing it through Classify.
//
// Example usage:
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    return err
//	}
//
//	req := &CompletionRequest{
//	    Model: "gpt-4o",
//	    Messages: []Message{
//	        {Role: "user", Content: "Hello!"},
//	    },
//	}
//
//	resp, err := provider.Complete(ctx, req)
//	if err != nil {
//	    switch Classify(err) {
//	    case KindRateLimited:
//	        // try another provider
//	    }
//	}
type Provider interface {
	// Complete sends a completion request to the provider and returns the
	// normalized response. The request is transformed to the provider-specific
	// format, the model id is rewritten through the provider's model aliases,
	// and the response is normalized to the provider-agnostic format.
	//
	// Implementations must respect ctx cancellation. A cancelled or expired
	// context yields a *TimeoutError.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// GetName returns the provider's configured name (e.g., "openai", "anthropic-backup").
	GetName() string

	// GetType returns the provider's type (e.g., "openai", "anthropic", "generic").
	GetType() string

	// GetConfig returns the provider's configuration.
	GetConfig() ProviderConfig

	// Close closes the provider and releases any resources (HTTP connections, etc.).
	// After calling Close, the provider should not be used.
	Close() error
}
