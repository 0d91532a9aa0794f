// Package generic implements an adapter for OpenAI-compatible servers such
// as Ollama, vLLM, LM Studio or LocalAI.
//
// It reuses the openai adapter with a mandatory base URL and an optional
// API key:
//
//	provider, err := generic.NewProvider(providers.ProviderConfig{
//	    Name:    "ollama",
//	    BaseURL: "http://localhost:11434/v1",
//	    Models:  map[string]string{"*": ""},
//	})
package generic
