// Package processing prices upstream exchanges.
//
// It is organized into two sub-packages:
//
//   - tokens: token estimation, exact for OpenAI models via tiktoken and
//     a character-ratio fallback for everything else
//   - costs: per-request cost from a provider's declared price per token,
//     using reported usage when the provider returns it and an estimate
//     otherwise
//
// The orchestrator calls costs.Calculator once per successful upstream
// response. Cache hits cost nothing and are never priced.
package processing
