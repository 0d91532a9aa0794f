// Package orchestrator sequences one completion request through the relay:
// cache lookup, provider selection, dispatch with retry, fallback along the
// candidate chain and cache population.
//
// # Flow
//
//	fingerprint -> Lookup --hit--> response
//	                  |
//	                 miss
//	                  v
//	Select -> for each candidate:
//	            Acquire breaker admission (skip when refused)
//	            attempt loop with exponential backoff for retryable kinds
//	            Record outcome
//	          -> Store on success
//
// Every attempt runs under the attempt timeout and the whole request under
// the request deadline. The deadline is checked before each attempt and each
// backoff sleep; once it fires the remaining retries and candidates are
// abandoned.
//
// # Errors
//
// Handle fails with one of NoEligibleProviderError, AllProvidersFailedError,
// RequestDeadlineExceededError, InvalidModelError or InvalidRequestError.
// Each matches a package sentinel through errors.Is. A request whose caller
// goes away fails with an error wrapping context.Canceled. A failed Handle
// still returns a Result whose Metadata describes what happened.
package orchestrator
