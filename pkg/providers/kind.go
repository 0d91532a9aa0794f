package providers

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ErrorKind is the routing-relevant class of a provider failure.
type ErrorKind int

const (
	// KindNone is the kind of a nil error.
	KindNone ErrorKind = iota

	// KindTimeout covers attempt timeouts and upstream 408/504 answers.
	KindTimeout

	// KindRateLimited is an upstream 429. It is not retried against the
	// same provider but lets the fallback chain continue.
	KindRateLimited

	// KindInvalidModel means the provider does not know the model.
	KindInvalidModel

	// KindTransient is an upstream failure that may succeed on retry (5xx).
	KindTransient

	// KindPermanent is an upstream failure that will not succeed on retry
	// (auth failures, malformed requests, unparseable responses).
	KindPermanent

	// KindConnection means the provider could not be reached at all.
	KindConnection

	// KindCanceled means the caller went away before the provider answered.
	// It says nothing about the provider.
	KindCanceled
)

var kindNames = map[ErrorKind]string{
	KindNone:         "none",
	KindTimeout:      "timeout",
	KindRateLimited:  "rate_limited",
	KindInvalidModel: "invalid_model",
	KindTransient:    "transient",
	KindPermanent:    "permanent",
	KindConnection:   "connection",
	KindCanceled:     "canceled",
}

// String returns the metric label form of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Retryable reports whether another attempt against the same provider may
// succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTimeout, KindConnection, KindTransient:
		return true
	default:
		return false
	}
}

// CountsAsFailure reports whether the outcome should count against the
// provider's circuit breaker. An unknown model is a correct answer from a
// healthy provider and does not; neither does a caller cancellation.
func (k ErrorKind) CountsAsFailure() bool {
	return k != KindNone && k != KindInvalidModel && k != KindCanceled
}

// Classify maps an adapter error onto its ErrorKind. Errors that are not
// one of this package's typed errors are classified by their transport
// shape and default to KindTransient.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var typed interface{ Kind() ErrorKind }
	if errors.As(err, &typed) {
		return typed.Kind()
	}

	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindConnection
	}

	return KindTransient
}

// classifyStatus classifies a ProviderError by its HTTP status. A
// ProviderError without a status was raised locally and is permanent.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}
