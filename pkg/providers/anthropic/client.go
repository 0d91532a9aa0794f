package anthropic

import (
	"context"
	"log/slog"

	"mercator-hq/relay/pkg/providers"
)

// Provider is the Anthropic provider adapter.
// It implements the providers.Provider interface for Anthropic's Messages API.
type Provider struct {
	*providers.HTTPProvider
}

const (
	// DefaultAnthropicVersion is sent as the anthropic-version header.
	DefaultAnthropicVersion = "2023-06-01"

	// DefaultBaseURL is the Anthropic API endpoint used when none is configured.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultMaxTokens is sent when the request does not set max_tokens,
	// which the Messages API requires.
	DefaultMaxTokens = 4096
)

// NewProvider creates a new Anthropic provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	config, err := config.Prepare("anthropic", DefaultBaseURL, 100, 10)
	if err != nil {
		return nil, err
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Anthropic",
		}
	}

	slog.Info("Anthropic provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)
	return &Provider{HTTPProvider: providers.NewHTTPProvider(config)}, nil
}

// Complete sends a completion request to Anthropic.
func (p *Provider) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	upstream, err := p.ResolveUpstreamModel(req)
	if err != nil {
		return nil, err
	}

	body, err := newMessagesRequest(upstream)
	if err != nil {
		return nil, err
	}

	var wire messagesResponse
	if err := p.DoJSONRequest(ctx, "POST", p.GetConfig().BaseURL+"/v1/messages", body, &wire, map[string]string{
		"x-api-key":         p.GetConfig().APIKey,
		"anthropic-version": DefaultAnthropicVersion,
		"Content-Type":      "application/json",
	}); err != nil {
		return nil, providers.TagModel(err, upstream.Model)
	}
	resp := wire.completion()

	slog.Debug("completion request succeeded",
		"provider", p.GetName(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)

	return resp, nil
}
