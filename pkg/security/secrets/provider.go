package secrets

import "context"

// Provider retrieves secrets from one backend.
type Provider interface {
	// GetSecret retrieves a secret by name. It returns ErrNotFound (possibly
	// wrapped) when the backend does not hold the secret.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name returns the backend name ("env", "file").
	Name() string
}
