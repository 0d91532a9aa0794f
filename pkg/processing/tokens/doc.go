// Package tokens provides token estimation for completion exchanges whose
// upstream did not report usage.
//
// Two estimators are provided:
//
//   - SimpleEstimator: character-based, with per-model-prefix ratios
//     (~4 characters per token for GPT models, ~3.5 for Claude).
//   - TiktokenEstimator: exact BPE counts for OpenAI-family models using
//     github.com/tiktoken-go/tokenizer, falling back to another estimator
//     for any other model.
//
// # Usage
//
//	estimator := tokens.NewTiktokenEstimator(tokens.NewSimpleEstimator(nil))
//	usage, err := tokens.EstimateUsage(estimator, req, resp)
package tokens
