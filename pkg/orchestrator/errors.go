package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// Sentinel errors for terminal request failures.
var (
	// ErrNoEligibleProvider indicates that no provider supports the model or
	// every capable provider's circuit breaker refused the request.
	ErrNoEligibleProvider = errors.New("no eligible provider")

	// ErrAllProvidersFailed indicates that every candidate was tried and failed.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrRequestDeadlineExceeded indicates that the request deadline fired
	// before a provider answered.
	ErrRequestDeadlineExceeded = errors.New("request deadline exceeded")

	// ErrInvalidModel indicates that the requested model does not exist.
	ErrInvalidModel = errors.New("invalid model")

	// ErrInvalidRequest indicates a malformed completion request.
	ErrInvalidRequest = errors.New("invalid request")
)

// Failure is the final failure of one candidate provider.
type Failure struct {
	// Provider is the provider id.
	Provider string `json:"provider"`

	// Kind classifies the error.
	Kind providers.ErrorKind `json:"-"`

	// Attempts is the number of dispatch attempts made against the provider.
	// Zero means the provider was skipped without a dispatch.
	Attempts int `json:"attempts"`

	// Err is the last error.
	Err error `json:"-"`
}

// Skipped reports whether the provider was passed over without a dispatch.
func (f Failure) Skipped() bool {
	return f.Attempts == 0
}

// Error returns a one-line description of the failure.
func (f Failure) Error() string {
	if f.Skipped() {
		return fmt.Sprintf("%s: skipped: %v", f.Provider, f.Err)
	}
	return fmt.Sprintf("%s: %s after %d attempt(s): %v", f.Provider, f.Kind, f.Attempts, f.Err)
}

func joinFailures(failures []Failure) string {
	parts := make([]string, len(failures))
	for i, f := range failures {
		parts[i] = f.Error()
	}
	return strings.Join(parts, "; ")
}

// NoEligibleProviderError is returned when routing produced no candidate
// or every candidate refused admission.
type NoEligibleProviderError struct {
	// Model is the requested model.
	Model string

	// Open lists capable providers excluded because their breaker is open.
	Open []string

	// Refused lists candidates whose breaker refused admission at dispatch
	// time (a half-open trial already in flight).
	Refused []string
}

// Error implements the error interface.
func (e *NoEligibleProviderError) Error() string {
	msg := fmt.Sprintf("no eligible provider for model %q", e.Model)
	if len(e.Open) > 0 {
		msg += fmt.Sprintf(" (circuit open: %s)", strings.Join(e.Open, ", "))
	}
	if len(e.Refused) > 0 {
		msg += fmt.Sprintf(" (refused: %s)", strings.Join(e.Refused, ", "))
	}
	return msg
}

// Is implements error matching for errors.Is.
func (e *NoEligibleProviderError) Is(target error) bool {
	return target == ErrNoEligibleProvider
}

// AllProvidersFailedError is returned when the fallback chain is exhausted.
// It carries every per-provider failure in the order they were tried.
type AllProvidersFailedError struct {
	// Model is the requested model.
	Model string

	// Failures holds one entry per candidate.
	Failures []Failure
}

// Error implements the error interface.
func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all %d provider(s) failed for model %q: %s", len(e.Failures), e.Model, joinFailures(e.Failures))
}

// Is implements error matching for errors.Is.
func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// Unwrap returns the individual provider errors.
func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// RequestDeadlineExceededError is returned when the request deadline fires
// before any provider answered.
type RequestDeadlineExceededError struct {
	// Deadline is the configured request deadline.
	Deadline time.Duration

	// Elapsed is how long the request ran.
	Elapsed time.Duration

	// Failures holds the provider failures seen before the deadline.
	Failures []Failure
}

// Error implements the error interface.
func (e *RequestDeadlineExceededError) Error() string {
	msg := fmt.Sprintf("request deadline of %s exceeded after %s", e.Deadline, e.Elapsed.Round(time.Millisecond))
	if len(e.Failures) > 0 {
		msg += ": " + joinFailures(e.Failures)
	}
	return msg
}

// Is implements error matching for errors.Is.
func (e *RequestDeadlineExceededError) Is(target error) bool {
	return target == ErrRequestDeadlineExceeded
}

// Unwrap returns context.DeadlineExceeded.
func (e *RequestDeadlineExceededError) Unwrap() error {
	return context.DeadlineExceeded
}

// InvalidModelError is returned when a provider that does not rewrite the
// model reports it unknown. No other provider would answer differently.
type InvalidModelError struct {
	// Model is the requested model.
	Model string

	// Provider is the provider that rejected it.
	Provider string

	// Cause is the provider's error.
	Cause error
}

// Error implements the error interface.
func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("model %q not found (reported by provider %q)", e.Model, e.Provider)
}

// Is implements error matching for errors.Is.
func (e *InvalidModelError) Is(target error) bool {
	return target == ErrInvalidModel
}

// Unwrap returns the provider's error.
func (e *InvalidModelError) Unwrap() error {
	return e.Cause
}

// InvalidRequestError is returned for a request that cannot be dispatched.
type InvalidRequestError struct {
	Message string
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Message
}

// Is implements error matching for errors.Is.
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}
