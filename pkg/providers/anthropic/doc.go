// Package anthropic implements the Anthropic Messages API provider adapter.
//
// Requests are translated from the OpenAI-shaped CompletionRequest: system
// messages are lifted into the top-level system field, max_tokens defaults
// to DefaultMaxTokens, and the user/assistant alternation the API requires
// is checked before anything is sent. Tool use blocks come back as
// ToolCalls with JSON-encoded arguments.
//
//	provider, err := anthropic.NewProvider(providers.ProviderConfig{
//	    Name:   "anthropic",
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
package anthropic
