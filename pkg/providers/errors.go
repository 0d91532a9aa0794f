package providers

import (
	"fmt"
	"time"
)

// Every error type below reports its routing class through Kind, which is
// what Classify reads.

// ProviderError is an upstream answer with a status that has no more
// specific type, or a failure raised locally without one.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Kind classifies by status. Without one the error was raised locally and
// is permanent.
func (e *ProviderError) Kind() ErrorKind { return classifyStatus(e.StatusCode) }

// AuthError is an upstream 401 or 403.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

func (e *AuthError) Kind() ErrorKind { return KindPermanent }

// RateLimitError is an upstream 429. RetryAfter is zero when the upstream
// sent no Retry-After header.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

func (e *RateLimitError) Kind() ErrorKind { return KindRateLimited }

// TimeoutError covers an expired attempt context, a transport timeout and
// an upstream 408 or 504.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
	Cause    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

func (e *TimeoutError) Kind() ErrorKind { return KindTimeout }

// ConnectionError is a transport failure before any status was received.
type ConnectionError struct {
	Provider string
	Cause    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("provider %q connection failed: %v", e.Provider, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

func (e *ConnectionError) Kind() ErrorKind { return KindConnection }

// ParseError is a 2xx answer whose body could not be decoded or normalized.
type ParseError struct {
	Provider    string
	RawResponse string
	Cause       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func (e *ParseError) Kind() ErrorKind { return KindPermanent }

// ModelNotFoundError means the provider does not serve the model, either
// because its model table excludes it or because the upstream said so.
// Model is the id sent upstream; adapters fill it in with TagModel.
type ModelNotFoundError struct {
	Provider string
	Model    string
	Message  string
}

func (e *ModelNotFoundError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("provider %q does not support the requested model: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("provider %q does not support model %q", e.Provider, e.Model)
}

func (e *ModelNotFoundError) Kind() ErrorKind { return KindInvalidModel }

// ValidationError rejects a request before it leaves the relay.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

func (e *ValidationError) Kind() ErrorKind { return KindPermanent }

// ConfigError rejects an adapter configuration.
type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

func (e *ConfigError) Kind() ErrorKind { return KindPermanent }
