package generic

import (
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/providers/openai"
)

// Provider talks to a self-hosted or third-party server that speaks the
// OpenAI chat completions dialect (Ollama, vLLM, LM Studio, ...).
type Provider struct {
	*openai.Provider
}

// NewProvider requires a base URL. The API key is optional since local
// servers usually run without one.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	config.Type = "generic"
	p, err := openai.NewCompatible(config)
	if err != nil {
		return nil, err
	}
	return &Provider{Provider: p}, nil
}
