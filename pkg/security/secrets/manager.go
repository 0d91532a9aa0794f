package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"mercator-hq/relay/pkg/config"
)

// ErrNotFound is returned when no provider holds a secret.
var ErrNotFound = errors.New("secret not found")

// secretRefRegex matches ${secret:name} references in configuration values.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager resolves secrets through an ordered chain of providers. The
// first provider that holds a secret wins.
type Manager struct {
	providers []Provider
}

// NewManager creates a manager over providers, tried in order.
func NewManager(providers ...Provider) *Manager {
	return &Manager{providers: providers}
}

// FromConfig builds the provider chain described by cfg: the environment
// first, then the secrets directory when one is configured.
func FromConfig(cfg config.SecretsConfig) (*Manager, error) {
	chain := []Provider{NewEnvProvider(cfg.EnvPrefix)}
	if cfg.Dir != "" {
		fp, err := NewFileProvider(cfg.Dir)
		if err != nil {
			return nil, err
		}
		chain = append(chain, fp)
	}
	return NewManager(chain...), nil
}

// GetSecret retrieves a secret from the first provider that holds it.
// Provider errors other than ErrNotFound stop the search.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	for _, p := range m.providers {
		value, err := p.GetSecret(ctx, name)
		if err == nil {
			slog.DebugContext(ctx, "secret resolved", "provider", p.Name(), "name", redactSecretName(name))
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("secret %q from %s: %w", name, p.Name(), err)
		}
	}
	return "", fmt.Errorf("secret %q: %w", name, ErrNotFound)
}

// ResolveReferences replaces every ${secret:name} in input. On error the
// unresolved references are left in place and every failure is reported.
func (m *Manager) ResolveReferences(ctx context.Context, input string) (string, error) {
	var errs []error
	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := secretRefRegex.FindStringSubmatch(match)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})
	return output, errors.Join(errs...)
}

// ResolveProviderKeys resolves secret references in every provider's
// api_key in place.
func (m *Manager) ResolveProviderKeys(ctx context.Context, cfg *config.Config) error {
	ids := make([]string, 0, len(cfg.Providers))
	for id := range cfg.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		pc := cfg.Providers[id]

		key, err := m.ResolveReferences(ctx, pc.APIKey)
		if err != nil {
			errs = append(errs, fmt.Errorf("providers.%s.api_key: %w", id, err))
		}
		pc.APIKey = key
		cfg.Providers[id] = pc
	}
	return errors.Join(errs...)
}

// redactSecretName keeps the first and last two characters for logs.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
