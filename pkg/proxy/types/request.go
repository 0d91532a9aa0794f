package types

import "strconv"

// ChatCompletionRequest is an OpenAI-compatible chat completion request.
type ChatCompletionRequest struct {
	// Model is the ID of the model to use (e.g., "gpt-4o", "claude-3-5-sonnet").
	Model string `json:"model"`

	// Messages is the conversation history as a list of messages.
	Messages []Message `json:"messages"`

	// Temperature controls randomness in the response (0.0 to 2.0).
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling (0.0 to 1.0).
	TopP *float64 `json:"top_p,omitempty"`

	// Stream is accepted for compatibility. Responses are always returned
	// whole.
	Stream bool `json:"stream,omitempty"`

	// Stop is a list of sequences where generation stops. At most 4.
	Stop []string `json:"stop,omitempty"`

	// PresencePenalty is between -2.0 and 2.0.
	PresencePenalty *float64 `json:"presence_penalty,omitempty"`

	// FrequencyPenalty is between -2.0 and 2.0.
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`

	// User identifies the end-user. It is forwarded upstream.
	User string `json:"user,omitempty"`

	// Tools is a list of tools/functions the model can call.
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice is "none", "auto" or an object naming a function.
	ToolChoice interface{} `json:"tool_choice,omitempty"`
}

// Message represents a single message in a conversation.
type Message struct {
	// Role is "system", "user", "assistant" or "tool".
	Role string `json:"role"`

	// Content is a string or an array of content parts. Only text parts
	// are forwarded.
	Content interface{} `json:"content"`

	Name string `json:"name,omitempty"`

	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID is the ID of the tool call a "tool" message answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// Tool represents a function/tool that the model can call.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a function that can be called by the model.
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall represents a function call made by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall represents the function name and JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// maxStopSequences is the OpenAI limit on stop sequences.
const maxStopSequences = 4

var validRoles = map[string]bool{"system": true, "user": true, "assistant": true, "tool": true}

// Validate checks required fields and value ranges. It reports the first
// problem found.
func (r *ChatCompletionRequest) Validate() error {
	switch {
	case r.Model == "":
		return invalid("model", "model is required")
	case len(r.Messages) == 0:
		return invalid("messages", "messages must contain at least one message")
	case len(r.Stop) > maxStopSequences:
		return invalid("stop", "at most "+strconv.Itoa(maxStopSequences)+" stop sequences are allowed")
	case r.MaxTokens != nil && *r.MaxTokens < 1:
		return invalid("max_tokens", "max_tokens must be greater than 0")
	}

	for _, rc := range []struct {
		field    string
		value    *float64
		min, max float64
	}{
		{"temperature", r.Temperature, 0, 2},
		{"top_p", r.TopP, 0, 1},
		{"presence_penalty", r.PresencePenalty, -2, 2},
		{"frequency_penalty", r.FrequencyPenalty, -2, 2},
	} {
		if rc.value != nil && (*rc.value < rc.min || *rc.value > rc.max) {
			return invalid(rc.field, rc.field+" must be between "+
				strconv.FormatFloat(rc.min, 'f', 1, 64)+" and "+strconv.FormatFloat(rc.max, 'f', 1, 64))
		}
	}

	for i, msg := range r.Messages {
		field := "messages[" + strconv.Itoa(i) + "]"
		switch {
		case msg.Role == "":
			return invalid(field+".role", "message role is required")
		case !validRoles[msg.Role]:
			return invalid(field+".role", "unknown message role "+strconv.Quote(msg.Role))
		case msg.Content == nil && len(msg.ToolCalls) == 0:
			return invalid(field+".content", "message content is required when no tool_calls present")
		case msg.Role == "tool" && msg.ToolCallID == "":
			return invalid(field+".tool_call_id", "tool messages must name the tool call they answer")
		}
	}

	return nil
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}
