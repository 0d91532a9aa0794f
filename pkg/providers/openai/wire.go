package openai

import (
	"errors"

	"mercator-hq/relay/pkg/providers"
)

// chatRequest is the body of POST /chat/completions. Tool definitions and
// tool calls share their JSON shape with the provider-agnostic types and are
// forwarded as-is.
type chatRequest struct {
	Model            string           `json:"model"`
	Messages         []chatMessage    `json:"messages"`
	Temperature      *float64         `json:"temperature,omitempty"`
	MaxTokens        int              `json:"max_tokens,omitempty"`
	TopP             *float64         `json:"top_p,omitempty"`
	Tools            []providers.Tool `json:"tools,omitempty"`
	ToolChoice       any              `json:"tool_choice,omitempty"`
	Stop             []string         `json:"stop,omitempty"`
	PresencePenalty  float64          `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64          `json:"frequency_penalty,omitempty"`
	User             string           `json:"user,omitempty"`
	N                int              `json:"n,omitempty"`
}

type chatMessage struct {
	Role       string               `json:"role"`
	Content    string               `json:"content,omitempty"`
	Name       string               `json:"name,omitempty"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
	ToolCalls  []providers.ToolCall `json:"tool_calls,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage providers.TokenUsage `json:"usage"`
}

var errNoChoices = errors.New("response carries no choices")

// finishReasons maps upstream finish reasons that differ from the
// normalized names. Anything else passes through.
var finishReasons = map[string]string{
	"function_call": providers.FinishReasonToolCalls,
}

func newChatRequest(req *providers.CompletionRequest) *chatRequest {
	out := &chatRequest{
		Model:            req.Model,
		Messages:         make([]chatMessage, len(req.Messages)),
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		Tools:            req.Tools,
		ToolChoice:       req.ToolChoice,
		Stop:             req.Stop,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		User:             req.User,
		// Only the first choice is read back.
		N: 1,
	}
	for i, m := range req.Messages {
		out.Messages[i] = chatMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
			ToolCalls:  m.ToolCalls,
		}
	}
	return out
}

// completion normalizes the first choice of r.
func (r *chatResponse) completion() (*providers.CompletionResponse, error) {
	if len(r.Choices) == 0 {
		return nil, errNoChoices
	}
	choice := r.Choices[0]

	usage := r.Usage
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	return &providers.CompletionResponse{
		ID:           r.ID,
		Model:        r.Model,
		Content:      choice.Message.Content,
		FinishReason: finishReason(choice.FinishReason),
		Usage:        usage,
		ToolCalls:    choice.Message.ToolCalls,
		Created:      r.Created,
		Metadata:     map[string]string{},
	}, nil
}

func finishReason(reason string) string {
	if normalized, ok := finishReasons[reason]; ok {
		return normalized
	}
	return reason
}
