package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"mercator-hq/relay/pkg/providers"
)

// openAIPrefixes identifies the model families tiktoken has encodings for.
var openAIPrefixes = []string{"gpt-", "o1", "o3", "o4", "text-embedding", "text-davinci"}

// TiktokenEstimator counts tokens exactly for OpenAI-family models using
// BPE encodings and defers to a fallback estimator for everything else.
type TiktokenEstimator struct {
	fallback Estimator

	mu     sync.RWMutex
	codecs map[tokenizer.Encoding]tokenizer.Codec
}

// NewTiktokenEstimator creates a tiktoken-backed estimator. A nil fallback
// selects a SimpleEstimator with default ratios.
func NewTiktokenEstimator(fallback Estimator) *TiktokenEstimator {
	if fallback == nil {
		fallback = NewSimpleEstimator(nil)
	}
	return &TiktokenEstimator{
		fallback: fallback,
		codecs:   make(map[tokenizer.Encoding]tokenizer.Codec),
	}
}

// Supports reports whether model is counted with tiktoken.
func (e *TiktokenEstimator) Supports(model string) bool {
	model = strings.ToLower(model)
	for _, prefix := range openAIPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// EstimateText counts tokens for a single text string.
func (e *TiktokenEstimator) EstimateText(text string, model string) (int, error) {
	if text == "" {
		return 0, nil
	}
	if !e.Supports(model) {
		return e.fallback.EstimateText(text, model)
	}

	codec, err := e.codec(model)
	if err != nil {
		return e.fallback.EstimateText(text, model)
	}

	ids, _, err := codec.Encode(text)
	if err != nil {
		return e.fallback.EstimateText(text, model)
	}
	return len(ids), nil
}

// EstimateMessages counts prompt tokens using the chat framing OpenAI
// documents: 3 tokens per message, 1 per role, 3 to prime the reply.
func (e *TiktokenEstimator) EstimateMessages(messages []providers.Message, model string) (int, error) {
	if !e.Supports(model) {
		return e.fallback.EstimateMessages(messages, model)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	total := 0
	for _, msg := range messages {
		total += 3 + 1

		n, err := e.EstimateText(msg.Content, model)
		if err != nil {
			return 0, err
		}
		total += n

		if msg.Name != "" {
			n, _ := e.EstimateText(msg.Name, model)
			total += n
		}

		for _, tc := range msg.ToolCalls {
			name, _ := e.EstimateText(tc.Function.Name, model)
			args, _ := e.EstimateText(tc.Function.Arguments, model)
			total += name + args + 3
		}
	}
	total += 3

	return total, nil
}

// codec returns the cached codec for model's encoding.
func (e *TiktokenEstimator) codec(model string) (tokenizer.Codec, error) {
	encoding := encodingFor(model)

	e.mu.RLock()
	codec, ok := e.codecs[encoding]
	e.mu.RUnlock()
	if ok {
		return codec, nil
	}

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.codecs[encoding] = codec
	e.mu.Unlock()

	return codec, nil
}

// encodingFor maps an OpenAI model id onto its BPE encoding.
func encodingFor(model string) tokenizer.Encoding {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "gpt-4o"),
		strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "gpt-5"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"),
		strings.HasPrefix(model, "gpt-3.5"),
		strings.HasPrefix(model, "text-embedding"):
		return tokenizer.Cl100kBase
	case strings.HasPrefix(model, "text-davinci"):
		return tokenizer.P50kBase
	default:
		return tokenizer.O200kBase
	}
}
