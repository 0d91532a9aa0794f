// Package openai implements the OpenAI provider adapter.
//
// It speaks the chat completions API (POST {base_url}/chat/completions) with
// bearer authentication, supports function/tool calling, and reports token
// usage as returned by the API.
//
//	provider, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:   "openai",
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	resp, err := provider.Complete(ctx, req)
//
// The base URL defaults to https://api.openai.com/v1.
package openai
