package types

// ChatCompletionResponse is an OpenAI-compatible chat completion response.
type ChatCompletionResponse struct {
	// ID is a unique identifier for the chat completion.
	ID string `json:"id"`

	// Object is always "chat.completion".
	Object string `json:"object"`

	// Created is the Unix timestamp of the response.
	Created int64 `json:"created"`

	// Model is the model id the caller asked for.
	Model string `json:"model"`

	// Choices holds the single generated choice.
	Choices []Choice `json:"choices"`

	// Usage contains token usage statistics.
	Usage Usage `json:"usage"`

	// Relay carries the serving metadata when the caller asks for it with
	// X-Relay-Metadata: true. Headers always carry a summary.
	Relay *RelayMetadata `json:"relay,omitempty"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index int `json:"index"`

	Message Message `json:"message"`

	// FinishReason is "stop", "length", "tool_calls" or "content_filter".
	FinishReason string `json:"finish_reason"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RelayMetadata describes how a response was produced.
type RelayMetadata struct {
	RequestID   string   `json:"request_id"`
	Fingerprint string   `json:"fingerprint"`
	Cache       string   `json:"cache"`
	CacheTier   string   `json:"cache_tier,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Strategy    string   `json:"strategy,omitempty"`
	Candidates  []string `json:"candidates,omitempty"`
	Attempts    int      `json:"attempts"`
	Cost        float64  `json:"cost"`
	Estimated   bool     `json:"cost_estimated,omitempty"`
	LatencyMS   int64    `json:"latency_ms"`
	Failures    []string `json:"failures,omitempty"`
}
