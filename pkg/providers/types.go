package providers

import (
	"strings"
	"time"
)

// Message is one turn of a conversation in the relay's provider-agnostic
// form. Adapters translate it to their upstream dialect.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on RoleTool messages
}

// ToolCall is a function invocation requested by the model. Arguments is
// the JSON-encoded argument object.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares a function the model may call. Parameters is a JSON Schema.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// TokenUsage is the token accounting of one exchange.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is what the orchestrator hands to an adapter. A field
// added here that changes the answer must also be added to the cache
// fingerprint projection. Temperature and TopP are nil when the client did
// not set them; an explicit zero must reach the upstream.
type CompletionRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	Tools            []Tool    `json:"tools,omitempty"`
	ToolChoice       any       `json:"tool_choice,omitempty"`
	Stop             []string  `json:"stop,omitempty"`
	PresencePenalty  float64   `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64   `json:"frequency_penalty,omitempty"`
	User             string    `json:"user,omitempty"`

	// Stream is accepted for wire compatibility and ignored; responses are
	// always returned whole.
	Stream bool `json:"stream,omitempty"`

	Metadata map[string]string `json:"-"`
}

// WithModel returns a shallow copy of the request targeting model.
func (r *CompletionRequest) WithModel(model string) *CompletionRequest {
	clone := *r
	clone.Model = model
	return &clone
}

// CompletionResponse is an upstream answer normalized by an adapter. It is
// also what the cache stores.
type CompletionResponse struct {
	ID           string     `json:"id"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	FinishReason string     `json:"finish_reason"` // one of the FinishReason constants, or the upstream value
	Usage        TokenUsage `json:"usage"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	Created      int64      `json:"created"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// ProviderConfig is the part of a provider's configuration an adapter
// needs. The factory builds it from config.ProviderConfig.
type ProviderConfig struct {
	Name    string
	Type    string // openai, anthropic or generic
	BaseURL string
	APIKey  string

	// Timeout caps a single HTTP exchange, on top of the attempt context.
	Timeout time.Duration

	// Models maps public model ids to upstream ids. An empty value keeps the
	// id; the key "*" accepts any model. A nil map accepts any model.
	Models map[string]string

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Normalized finish reasons.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)

// ToolTypeFunction is the only tool type upstreams define.
const ToolTypeFunction = "function"

// WildcardModel is the Models key that accepts any model id.
const WildcardModel = "*"

// ResolveModel returns the upstream model id for model and whether the
// provider serves it at all. An exact entry wins over the wildcard.
func (c ProviderConfig) ResolveModel(model string) (string, bool) {
	if c.Models == nil {
		return model, true
	}
	if upstream, ok := c.Models[model]; ok {
		if upstream == "" {
			return model, true
		}
		return upstream, true
	}
	if _, ok := c.Models[WildcardModel]; ok {
		return model, true
	}
	return "", false
}

// Supports reports whether the provider serves model.
func (c ProviderConfig) Supports(model string) bool {
	_, ok := c.ResolveModel(model)
	return ok
}

// RewritesModel reports whether the provider sends model upstream under a
// different id. An upstream "unknown model" answer is then specific to this
// provider and does not condemn the request.
func (c ProviderConfig) RewritesModel(model string) bool {
	upstream, ok := c.ResolveModel(model)
	return ok && upstream != model
}

// Prepare checks the fields every adapter needs and fills the adapter's
// defaults: typ for an empty Type, baseURL for an empty BaseURL and the
// given pool sizes for unset ones. A trailing slash is trimmed from BaseURL.
func (c ProviderConfig) Prepare(typ, baseURL string, maxIdle, maxIdlePerHost int) (ProviderConfig, error) {
	if c.Name == "" {
		return c, &ConfigError{Provider: typ, Field: "name", Message: "provider name is required"}
	}
	if c.Type == "" {
		c.Type = typ
	}
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.BaseURL == "" {
		return c, &ConfigError{Provider: c.Name, Field: "base_url", Message: "base URL is required"}
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = maxIdle
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = maxIdlePerHost
	}
	return c, nil
}
