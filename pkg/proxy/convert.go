package proxy

import (
	"fmt"
	"strings"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
)

// ToCompletionRequest converts an OpenAI request to the provider-agnostic
// form the orchestrator routes. Multimodal content keeps only its text parts.
func ToCompletionRequest(req *types.ChatCompletionRequest) *providers.CompletionRequest {
	out := &providers.CompletionRequest{
		Model:       req.Model,
		Messages:    make([]providers.Message, 0, len(req.Messages)),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      req.Stream,
		Stop:        req.Stop,
		User:        req.User,
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, providers.Message{
			Role:       msg.Role,
			Content:    messageText(msg.Content),
			Name:       msg.Name,
			ToolCalls:  toProviderToolCalls(msg.ToolCalls),
			ToolCallID: msg.ToolCallID,
		})
	}

	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.PresencePenalty != nil {
		out.PresencePenalty = *req.PresencePenalty
	}
	if req.FrequencyPenalty != nil {
		out.FrequencyPenalty = *req.FrequencyPenalty
	}

	if len(req.Tools) > 0 {
		out.Tools = make([]providers.Tool, len(req.Tools))
		for i, tool := range req.Tools {
			out.Tools[i] = providers.Tool{
				Type: tool.Type,
				Function: providers.FunctionDefinition{
					Name:        tool.Function.Name,
					Description: tool.Function.Description,
					Parameters:  tool.Function.Parameters,
				},
			}
		}
	}
	out.ToolChoice = req.ToolChoice

	return out
}

// messageText flattens message content to a string.
func messageText(content interface{}) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []interface{}:
		var parts []string
		for _, part := range c {
			m, ok := part.(map[string]interface{})
			if !ok || m["type"] != "text" {
				continue
			}
			if text, ok := m["text"].(string); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", c)
	}
}

func toProviderToolCalls(calls []types.ToolCall) []providers.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]providers.ToolCall, len(calls))
	for i, tc := range calls {
		out[i] = providers.ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: providers.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}
	}
	return out
}

func fromProviderToolCalls(calls []providers.ToolCall) []types.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]types.ToolCall, len(calls))
	for i, tc := range calls {
		out[i] = types.ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: types.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}
	}
	return out
}
