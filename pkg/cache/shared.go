package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by SharedTier.Get when the fingerprint is absent
// or expired.
var ErrNotFound = errors.New("cache entry not found")

// SharedTier is a key-value store shared by every gateway instance. It may
// be unavailable at any time; Manager never lets its errors reach callers.
type SharedTier interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Get returns the entry for fingerprint or ErrNotFound.
	Get(ctx context.Context, fingerprint string) (*Entry, error)

	// Set stores the entry until its ExpiresAt.
	Set(ctx context.Context, e *Entry) error

	// Delete removes fingerprint. Deleting an absent key is not an error.
	Delete(ctx context.Context, fingerprint string) error

	// Close releases the backend's connections.
	Close() error
}

// ExpiredPurger is implemented by shared tiers whose storage does not
// expire entries on its own.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
