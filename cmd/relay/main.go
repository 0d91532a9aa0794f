// Relay is a multi-provider LLM request router with a tiered response cache.
//
// It accepts OpenAI-shaped chat completion requests, answers repeats from
// an in-process and an optional shared cache, and dispatches misses to a
// chain of upstream providers ordered by the configured routing strategy.
// Failed providers are retried with backoff, skipped by per-provider
// circuit breakers, and fallen back from under one request deadline.
//
// Usage:
//
//	# Start server with default configuration
//	relay run
//
//	# Start with custom configuration file
//	relay run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	relay validate --config /path/to/config.yaml
//
//	# Show version information
//	relay version
package main

func main() {
	Execute()
}
