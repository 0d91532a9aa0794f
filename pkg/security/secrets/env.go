package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvPrefix namespaces secrets read from the environment.
const DefaultEnvPrefix = "RELAY_SECRET_"

// EnvProvider loads secrets from environment variables.
//
// Secret names are upper-cased with hyphens replaced by underscores and
// the prefix prepended: with prefix "RELAY_SECRET_" the secret
// "openai-api-key" is read from RELAY_SECRET_OPENAI_API_KEY.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates a new environment variable secret provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// GetSecret retrieves a secret from an environment variable.
func (p *EnvProvider) GetSecret(ctx context.Context, name string) (string, error) {
	envVar := p.envVar(name)
	value, ok := os.LookupEnv(envVar)
	if !ok || value == "" {
		return "", fmt.Errorf("env var %s: %w", envVar, ErrNotFound)
	}
	return value, nil
}

// Name returns the provider name.
func (p *EnvProvider) Name() string {
	return "env"
}

func (p *EnvProvider) envVar(name string) string {
	return p.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
