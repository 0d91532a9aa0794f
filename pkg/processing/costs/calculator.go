package costs

import (
	"log/slog"

	"mercator-hq/relay/pkg/processing/tokens"
	"mercator-hq/relay/pkg/providers"
)

// Cost is the price of one upstream exchange.
type Cost struct {
	// Tokens is the total number of tokens billed.
	Tokens int

	// Amount is the cost in USD.
	Amount float64

	// Estimated is true when the upstream omitted usage and the token count
	// was estimated locally.
	Estimated bool
}

// Calculator prices completion exchanges at a provider's declared
// cost-per-token rate. It is safe for concurrent use.
type Calculator struct {
	estimator tokens.Estimator
}

// NewCalculator creates a calculator that estimates missing usage with
// estimator. A nil estimator selects a tiktoken estimator with a
// character-based fallback.
func NewCalculator(estimator tokens.Estimator) *Calculator {
	if estimator == nil {
		estimator = tokens.NewTiktokenEstimator(nil)
	}
	return &Calculator{estimator: estimator}
}

// Usage returns the token usage reported by resp, or an estimate when the
// upstream reported none.
func (c *Calculator) Usage(req *providers.CompletionRequest, resp *providers.CompletionResponse) (providers.TokenUsage, bool) {
	if resp == nil {
		return providers.TokenUsage{}, false
	}

	usage := resp.Usage
	if usage.TotalTokens == 0 && (usage.PromptTokens > 0 || usage.CompletionTokens > 0) {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if usage.TotalTokens > 0 {
		return usage, false
	}

	estimated, err := tokens.EstimateUsage(c.estimator, req, resp)
	if err != nil {
		slog.Warn("token estimation failed", "model", resp.Model, "error", err)
		return providers.TokenUsage{}, true
	}
	return estimated, true
}

// Calculate prices an exchange: total tokens times costPerToken.
// It is only called after an actual upstream dispatch; cache hits cost nothing.
func (c *Calculator) Calculate(costPerToken float64, req *providers.CompletionRequest, resp *providers.CompletionResponse) Cost {
	usage, estimated := c.Usage(req, resp)

	cost := Cost{
		Tokens:    usage.TotalTokens,
		Estimated: estimated,
	}
	if costPerToken > 0 && usage.TotalTokens > 0 {
		cost.Amount = float64(usage.TotalTokens) * costPerToken
	}
	return cost
}
