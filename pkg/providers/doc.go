// Package providers implements a unified abstraction layer for LLM providers.
//
// # Overview
//
// The providers package provides a consistent interface for interacting with
// different LLM providers (OpenAI, Anthropic, local OpenAI-compatible servers).
// It normalizes requests and responses, manages pooled connections, and maps
// every upstream failure onto a small set of error kinds that the routing
// and orchestration layers act on.
//
// # Architecture
//
//  1. Provider Interface - one Complete call per upstream exchange
//  2. Base HTTP Provider - connection pooling, timeouts, status mapping
//  3. Provider Adapters - openai, anthropic and generic subpackages
//  4. Error Kinds - Classify(err) for retry, fallback and breaker decisions
//
// # Error Kinds
//
// Adapters never retry. Each failure is returned as a typed error and
// Classify maps it onto an ErrorKind:
//
//	KindTimeout       attempt deadline, 408, 504         retryable
//	KindConnection    refused, reset, DNS                retryable
//	KindTransient     5xx                                retryable
//	KindRateLimited   429                                next provider
//	KindPermanent     401, 403, other 4xx, bad payload   next provider
//	KindInvalidModel  404 or undeclared model            fatal for the request
//	KindCanceled      caller went away                   not a provider failure
//
// KindInvalidModel is fatal only when the provider sends the model id
// unchanged. A provider with a model alias (ProviderConfig.Models) that
// answers "unknown model" fails alone; see ProviderConfig.RewritesModel.
//
// # Basic Usage
//
//	provider, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:    "openai",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	    Timeout: 60 * time.Second,
//	    Models:  map[string]string{"gpt-4o": ""},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	resp, err := provider.Complete(ctx, &providers.CompletionRequest{
//	    Model:    "gpt-4o",
//	    Messages: []providers.Message{{Role: "user", Content: "Hello!"}},
//	})
//	if err != nil && providers.Classify(err).Retryable() {
//	    // try again later
//	}
//
// # Thread Safety
//
// All providers are safe for concurrent use. The underlying http.Client
// pools connections per host.
package providers
