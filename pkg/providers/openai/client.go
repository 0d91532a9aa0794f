package openai

import (
	"context"
	"log/slog"

	"mercator-hq/relay/pkg/providers"
)

// DefaultBaseURL is the OpenAI API endpoint used when none is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider is the OpenAI provider adapter.
// It implements the providers.Provider interface for OpenAI's chat completions API.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates an adapter for api.openai.com or any endpoint that
// requires an API key.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	config, err := config.Prepare("openai", DefaultBaseURL, 100, 10)
	if err != nil {
		return nil, err
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for OpenAI",
		}
	}
	return newProvider(config), nil
}

// NewCompatible creates an adapter for an OpenAI-compatible server. The
// base URL is required and the API key is optional; without one no
// Authorization header is sent.
func NewCompatible(config providers.ProviderConfig) (*Provider, error) {
	config, err := config.Prepare("generic", "", 10, 5)
	if err != nil {
		return nil, err
	}
	return newProvider(config), nil
}

func newProvider(config providers.ProviderConfig) *Provider {
	slog.Info("OpenAI-compatible provider initialized",
		"provider", config.Name,
		"type", config.Type,
		"base_url", config.BaseURL,
	)
	return &Provider{HTTPProvider: providers.NewHTTPProvider(config)}
}

// Complete sends a completion request to the chat completions endpoint.
func (p *Provider) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	upstream, err := p.ResolveUpstreamModel(req)
	if err != nil {
		return nil, err
	}

	var wire chatResponse
	if err := p.DoJSONRequest(ctx, "POST", p.GetConfig().BaseURL+"/chat/completions", newChatRequest(upstream), &wire, p.headers()); err != nil {
		return nil, providers.TagModel(err, upstream.Model)
	}

	resp, err := wire.completion()
	if err != nil {
		return nil, &providers.ParseError{
			Provider: p.GetName(),
			Cause:    err,
		}
	}

	slog.Debug("completion request succeeded",
		"provider", p.GetName(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)

	return resp, nil
}

func (p *Provider) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if key := p.GetConfig().APIKey; key != "" {
		h["Authorization"] = "Bearer " + key
	}
	return h
}
