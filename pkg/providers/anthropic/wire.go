package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/relay/pkg/providers"
)

// messagesRequest is the body of POST /v1/messages.
type messagesRequest struct {
	Model         string    `json:"model"`
	System        string    `json:"system,omitempty"`
	Messages      []message `json:"messages"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   *float64  `json:"temperature,omitempty"`
	TopP          *float64  `json:"top_p,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	Tools         []tool    `json:"tools,omitempty"`
}

// message content is either a plain string or a list of blocks.
type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type block struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type messagesResponse struct {
	ID         string  `json:"id"`
	Model      string  `json:"model"`
	Content    []block `json:"content"`
	StopReason string  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

var stopReasons = map[string]string{
	"end_turn":      providers.FinishReasonStop,
	"stop_sequence": providers.FinishReasonStop,
	"max_tokens":    providers.FinishReasonLength,
	"tool_use":      providers.FinishReasonToolCalls,
	"refusal":       providers.FinishReasonContentFilter,
}

// newMessagesRequest lifts system messages into the system field and turns
// tool traffic into content blocks: assistant tool calls become tool_use
// blocks and tool results become user tool_result blocks.
func newMessagesRequest(req *providers.CompletionRequest) (*messagesRequest, error) {
	out := &messagesRequest{
		Model:         req.Model,
		Messages:      make([]message, 0, len(req.Messages)),
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = DefaultMaxTokens
	}

	var system []string
	for _, m := range req.Messages {
		switch {
		case m.Role == providers.RoleSystem:
			system = append(system, m.Content)
		case m.Role == providers.RoleTool:
			out.Messages = append(out.Messages, message{
				Role:    providers.RoleUser,
				Content: []block{{Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Content}},
			})
		case len(m.ToolCalls) > 0:
			blocks, err := toolUseBlocks(m)
			if err != nil {
				return nil, err
			}
			out.Messages = append(out.Messages, message{Role: m.Role, Content: blocks})
		default:
			out.Messages = append(out.Messages, message{Role: m.Role, Content: m.Content})
		}
	}
	out.System = strings.Join(system, "\n\n")

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}

	if err := checkTurnOrder(out.Messages); err != nil {
		return nil, err
	}
	return out, nil
}

func toolUseBlocks(m providers.Message) ([]block, error) {
	blocks := make([]block, 0, len(m.ToolCalls)+1)
	if m.Content != "" {
		blocks = append(blocks, block{Type: "text", Text: m.Content})
	}
	for _, tc := range m.ToolCalls {
		if !json.Valid([]byte(tc.Function.Arguments)) {
			return nil, &providers.ValidationError{
				Field:   "messages",
				Message: fmt.Sprintf("tool call %s has non-JSON arguments", tc.ID),
			}
		}
		blocks = append(blocks, block{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: json.RawMessage(tc.Function.Arguments),
		})
	}
	return blocks, nil
}

// checkTurnOrder enforces the Messages API rule that the conversation opens
// with a user turn and then alternates.
func checkTurnOrder(msgs []message) error {
	if len(msgs) == 0 {
		return nil
	}
	if msgs[0].Role != providers.RoleUser {
		return &providers.ValidationError{
			Field:   "messages",
			Message: "conversation must start with a user message",
		}
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Role == msgs[i-1].Role {
			return &providers.ValidationError{
				Field:   "messages",
				Message: fmt.Sprintf("consecutive %s messages at index %d", msgs[i].Role, i),
			}
		}
	}
	return nil
}

// completion concatenates the text blocks of r and collects its tool_use
// blocks as tool calls.
func (r *messagesResponse) completion() *providers.CompletionResponse {
	var text strings.Builder
	var calls []providers.ToolCall
	for _, b := range r.Content {
		switch b.Type {
		case "text":
			text.WriteString(b.Text)
		case "tool_use":
			args := string(b.Input)
			if args == "" {
				args = "{}"
			}
			calls = append(calls, providers.ToolCall{
				ID:       b.ID,
				Type:     providers.ToolTypeFunction,
				Function: providers.FunctionCall{Name: b.Name, Arguments: args},
			})
		}
	}

	reason, ok := stopReasons[r.StopReason]
	if !ok {
		reason = r.StopReason
	}

	return &providers.CompletionResponse{
		ID:           r.ID,
		Model:        r.Model,
		Content:      text.String(),
		FinishReason: reason,
		Usage: providers.TokenUsage{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		},
		ToolCalls: calls,
		Metadata:  map[string]string{},
	}
}
