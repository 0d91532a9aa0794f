package tokens

import (
	"mercator-hq/relay/pkg/providers"
)

// Estimator estimates token counts for text and messages.
// Implementations may use different algorithms (character-based, tiktoken, etc.).
type Estimator interface {
	// EstimateText estimates tokens for a single text string.
	EstimateText(text string, model string) (int, error)

	// EstimateMessages estimates tokens for a list of messages.
	// Returns total prompt tokens including formatting overhead.
	EstimateMessages(messages []providers.Message, model string) (int, error)
}

// EstimateUsage estimates prompt and completion tokens for an exchange
// whose upstream did not report usage.
func EstimateUsage(e Estimator, req *providers.CompletionRequest, resp *providers.CompletionResponse) (providers.TokenUsage, error) {
	var usage providers.TokenUsage

	if req != nil {
		prompt, err := e.EstimateMessages(req.Messages, req.Model)
		if err != nil {
			return usage, err
		}
		usage.PromptTokens = prompt
	}

	if resp != nil {
		model := resp.Model
		if model == "" && req != nil {
			model = req.Model
		}
		completion, err := e.EstimateText(resp.Content, model)
		if err != nil {
			return usage, err
		}
		for _, tc := range resp.ToolCalls {
			args, err := e.EstimateText(tc.Function.Name+tc.Function.Arguments, model)
			if err != nil {
				return usage, err
			}
			completion += args
		}
		usage.CompletionTokens = completion
	}

	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage, nil
}
