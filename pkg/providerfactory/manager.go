package providerfactory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
)

// ErrProviderNotFound is returned by GetProvider for an unknown id.
var ErrProviderNotFound = errors.New("provider not found")

// Manager owns the provider adapters. It is the orchestrator's provider
// registry and closes every adapter on shutdown.
//
// Manager is thread-safe and can be used concurrently.
type Manager struct {
	providers map[string]providers.Provider
	mu        sync.RWMutex
}

// NewManager creates an empty provider manager.
func NewManager() *Manager {
	return &Manager{
		providers: make(map[string]providers.Provider),
	}
}

// AddProvider creates an adapter and registers it. An existing provider
// with the same name is replaced and closed.
func (m *Manager) AddProvider(cfg providers.ProviderConfig) error {
	provider, err := NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to add provider %q: %w", cfg.Name, err)
	}
	m.Register(provider)
	return nil
}

// Register adds a ready-made provider under its own name.
func (m *Manager) Register(provider providers.Provider) {
	name := provider.GetName()

	m.mu.Lock()
	existing, replaced := m.providers[name]
	m.providers[name] = provider
	total := len(m.providers)
	m.mu.Unlock()

	if replaced {
		slog.Warn("replacing existing provider", "name", name)
		if err := existing.Close(); err != nil {
			slog.Error("error closing replaced provider", "name", name, "error", err)
		}
	}

	slog.Debug("provider registered",
		"name", name,
		"type", provider.GetType(),
		"total_providers", total,
	)
}

// RemoveProvider removes a provider from the manager and closes it.
func (m *Manager) RemoveProvider(name string) error {
	m.mu.Lock()
	provider, ok := m.providers[name]
	delete(m.providers, name)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}

	if err := provider.Close(); err != nil {
		slog.Error("error closing provider", "name", name, "error", err)
	}
	return nil
}

// GetProvider returns a provider by name.
func (m *Manager) GetProvider(name string) (providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provider, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}

	return provider, nil
}

// GetProviders returns a copy of the provider map.
func (m *Manager) GetProviders() map[string]providers.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]providers.Provider, len(m.providers))
	for name, provider := range m.providers {
		out[name] = provider
	}
	return out
}

// GetProviderNames returns the sorted provider names.
func (m *Manager) GetProviderNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderCount returns the total number of providers.
func (m *Manager) ProviderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.providers)
}

// LoadFromConfig creates an adapter for every configured provider. Failures
// are collected; the providers that did load stay registered.
func (m *Manager) LoadFromConfig(cfgs map[string]config.ProviderConfig) error {
	var errs []error

	for _, desc := range Descriptors(cfgs) {
		if err := m.AddProvider(AdapterConfig(desc.ID, cfgs[desc.ID])); err != nil {
			slog.Error("failed to load provider", "name", desc.ID, "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to load %d provider(s): %w", len(errs), errors.Join(errs...))
	}

	slog.Info("providers loaded", "count", len(cfgs))
	return nil
}

// Close closes all providers and empties the manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	closing := m.providers
	m.providers = make(map[string]providers.Provider)
	m.mu.Unlock()

	var errs []error
	for name, provider := range closing {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}

	slog.Info("provider manager closed", "closed", len(closing))
	return errors.Join(errs...)
}
