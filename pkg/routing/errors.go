package routing

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/relay/pkg/circuitbreaker"
)

// Common routing errors that can be checked with errors.Is().
var (
	// ErrNoProvidersConfigured is returned when the engine is built without providers.
	ErrNoProvidersConfigured = errors.New("no providers configured")

	// ErrProviderNotFound is returned when a provider id is unknown.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderUnavailable is returned by Acquire when the provider's
	// circuit breaker refuses admission.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrInvalidStrategy is returned when an unknown routing strategy is configured.
	ErrInvalidStrategy = errors.New("invalid routing strategy")
)

// ProviderNotFoundError is returned when a provider id does not exist.
type ProviderNotFoundError struct {
	// ProviderName is the requested provider that was not found.
	ProviderName string

	// AvailableProviders contains the ids of configured providers.
	AvailableProviders []string
}

// Error implements the error interface.
func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("provider %q not found (available providers: %s)",
		e.ProviderName, strings.Join(e.AvailableProviders, ", "))
}

// Is implements error matching for errors.Is().
func (e *ProviderNotFoundError) Is(target error) bool {
	return target == ErrProviderNotFound
}

// ProviderUnavailableError is returned when a provider's circuit breaker is
// open or its half-open trial is already taken.
type ProviderUnavailableError struct {
	// Provider is the provider id.
	Provider string

	// State is the breaker state at refusal time.
	State circuitbreaker.State

	// Cause is the breaker's refusal.
	Cause error
}

// Error implements the error interface.
func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %q unavailable (breaker %s): %v", e.Provider, e.State, e.Cause)
}

// Is implements error matching for errors.Is().
func (e *ProviderUnavailableError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// Unwrap returns the breaker error.
func (e *ProviderUnavailableError) Unwrap() error {
	return e.Cause
}

// InvalidStrategyError is returned when the configured routing strategy
// is not recognized.
type InvalidStrategyError struct {
	// Strategy is the invalid strategy name.
	Strategy string

	// AvailableStrategies contains the valid strategy names.
	AvailableStrategies []string
}

// Error implements the error interface.
func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("invalid routing strategy %q (available strategies: %s)",
		e.Strategy, strings.Join(e.AvailableStrategies, ", "))
}

// Is implements error matching for errors.Is().
func (e *InvalidStrategyError) Is(target error) bool {
	return target == ErrInvalidStrategy
}
