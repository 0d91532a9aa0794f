package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
)

// FormatChatCompletionResponse converts a provider response to OpenAI chat completion format.
// The model echoes what the caller asked for, not the upstream alias.
//
// Example usage:
//
//	res, err := orch.Handle(ctx, req)
//	if err != nil {
//	    return err
//	}
//	openaiResp := FormatChatCompletionResponse(res.Response, "gpt-4o")
func FormatChatCompletionResponse(resp *providers.CompletionResponse, requestedModel string) *types.ChatCompletionResponse {
	created := resp.Created
	if created == 0 {
		created = time.Now().Unix()
	}

	return &types.ChatCompletionResponse{
		ID:      responseID(resp.ID),
		Object:  "chat.completion",
		Created: created,
		Model:   requestedModel,
		Choices: []types.Choice{
			{
				Index: 0,
				Message: types.Message{
					Role:      "assistant",
					Content:   resp.Content,
					ToolCalls: fromProviderToolCalls(resp.ToolCalls),
				},
				FinishReason: resp.FinishReason,
			},
		},
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

// responseID keeps provider IDs that already carry the OpenAI prefix.
func responseID(id string) string {
	if len(id) >= 9 && id[:9] == "chatcmpl-" {
		return id
	}
	return fmt.Sprintf("chatcmpl-%s", id)
}

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the content-type header before the status line.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an OpenAI-compatible error response.
// It extracts the HTTP status code from the error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}
