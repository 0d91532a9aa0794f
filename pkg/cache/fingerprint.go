package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"mercator-hq/relay/pkg/providers"
)

// fingerprintVersion is mixed into every fingerprint so that a change to
// the projection below invalidates old keys instead of colliding with them.
const fingerprintVersion = "v2:"

// projection is the part of a request that determines its response. Fields
// that do not (stream, user, metadata) are left out. Struct fields marshal
// in declaration order and map keys are sorted by encoding/json, so the
// inbound JSON field order never matters. An unset temperature or top_p
// hashes as null, distinct from an explicit zero.
type projection struct {
	Model            string              `json:"model"`
	Messages         []projectionMessage `json:"messages"`
	Temperature      *float64            `json:"temperature"`
	MaxTokens        int                 `json:"max_tokens"`
	TopP             *float64            `json:"top_p"`
	Stop             []string            `json:"stop,omitempty"`
	PresencePenalty  float64             `json:"presence_penalty"`
	FrequencyPenalty float64             `json:"frequency_penalty"`
	Tools            []providers.Tool    `json:"tools,omitempty"`
	ToolChoice       interface{}         `json:"tool_choice,omitempty"`
}

type projectionMessage struct {
	Role       string               `json:"role"`
	Content    string               `json:"content"`
	Name       string               `json:"name,omitempty"`
	ToolCalls  []providers.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
}

// Fingerprint returns the cache key of req: a hex SHA-256 over a canonical
// JSON projection of the model, the normalized messages and the generation
// parameters. Semantically identical requests share a fingerprint.
func Fingerprint(req *providers.CompletionRequest) string {
	p := projection{
		Model:            strings.TrimSpace(req.Model),
		Messages:         make([]projectionMessage, len(req.Messages)),
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		Stop:             req.Stop,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		Tools:            req.Tools,
		ToolChoice:       req.ToolChoice,
	}
	for i, m := range req.Messages {
		p.Messages[i] = projectionMessage{
			Role:       strings.ToLower(strings.TrimSpace(m.Role)),
			Content:    normalizeContent(m.Content),
			Name:       m.Name,
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
		}
	}

	h := sha256.New()
	h.Write([]byte(fingerprintVersion))
	data, err := json.Marshal(p)
	if err != nil {
		// Only an unmarshalable ToolChoice gets here; drop it rather than
		// failing the request.
		p.ToolChoice = nil
		data, _ = json.Marshal(p)
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeContent unifies line endings and trims surrounding whitespace.
// Interior whitespace is kept: it can be meaningful (code, tables).
func normalizeContent(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// ValidFingerprint reports whether s looks like a value Fingerprint
// returns: 64 lowercase hex characters.
func ValidFingerprint(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
