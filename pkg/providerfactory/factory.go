package providerfactory

import (
	"fmt"
	"log/slog"
	"sort"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/providers/anthropic"
	"mercator-hq/relay/pkg/providers/generic"
	"mercator-hq/relay/pkg/providers/openai"
	"mercator-hq/relay/pkg/routing"
)

// NewProvider creates a new provider instance based on the configuration.
//
// Supported provider types:
//   - "openai": OpenAI API
//   - "anthropic": Anthropic Messages API
//   - "generic": OpenAI-compatible APIs (Ollama, LM Studio, vLLM, etc.)
//
// The provider type is determined from the config.Type field. If not specified,
// it is inferred from the provider name:
//   - "openai" -> OpenAI
//   - "anthropic" -> Anthropic
//   - Everything else -> Generic
//
// Example:
//
//	provider, err := NewProvider(providers.ProviderConfig{
//	    Name:    "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    APIKey:  "sk-...",
//	    Models:  map[string]string{"gpt-4o": ""},
//	})
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
func NewProvider(cfg providers.ProviderConfig) (providers.Provider, error) {
	if cfg.Type == "" {
		cfg.Type = inferProviderType(cfg.Name)
	}

	slog.Debug("creating provider",
		"name", cfg.Name,
		"type", cfg.Type,
		"base_url", cfg.BaseURL,
	)

	var (
		provider providers.Provider
		err      error
	)

	switch cfg.Type {
	case "openai":
		provider, err = openai.NewProvider(cfg)
	case "anthropic":
		provider, err = anthropic.NewProvider(cfg)
	case "generic":
		provider, err = generic.NewProvider(cfg)
	default:
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported provider type: %q (supported: openai, anthropic, generic)", cfg.Type),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", cfg.Name, err)
	}

	slog.Info("provider created",
		"name", cfg.Name,
		"type", cfg.Type,
		"models", len(cfg.Models),
	)

	return provider, nil
}

// AdapterConfig converts the file configuration of provider id into the
// adapter configuration.
func AdapterConfig(id string, pc config.ProviderConfig) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                id,
		Type:                pc.Type,
		BaseURL:             pc.BaseURL,
		APIKey:              pc.APIKey,
		Timeout:             pc.Timeout,
		Models:              pc.Models,
		MaxIdleConns:        pc.MaxIdleConns,
		MaxIdleConnsPerHost: pc.MaxIdleConnsPerHost,
		IdleConnTimeout:     pc.IdleConnTimeout,
	}
}

// Descriptors builds the routing descriptors for every configured provider,
// sorted by id.
func Descriptors(cfgs map[string]config.ProviderConfig) []routing.Descriptor {
	ids := make([]string, 0, len(cfgs))
	for id := range cfgs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	descs := make([]routing.Descriptor, 0, len(ids))
	for _, id := range ids {
		pc := cfgs[id]
		descs = append(descs, routing.Descriptor{
			ID:              id,
			Priority:        pc.Priority,
			CostPerToken:    pc.CostPerToken,
			DeclaredLatency: pc.DeclaredLatency,
			Models:          pc.Models,
		})
	}
	return descs
}

// ProviderAttempts returns the per-provider retry overrides.
func ProviderAttempts(cfgs map[string]config.ProviderConfig) map[string]int {
	attempts := make(map[string]int)
	for id, pc := range cfgs {
		if pc.MaxAttempts > 0 {
			attempts[id] = pc.MaxAttempts
		}
	}
	return attempts
}

// inferProviderType infers the provider type from the provider name.
func inferProviderType(name string) string {
	switch name {
	case "openai":
		return "openai"
	case "anthropic":
		return "anthropic"
	default:
		return "generic"
	}
}
