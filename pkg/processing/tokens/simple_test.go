package tokens

import (
	"strings"
	"testing"

	"mercator-hq/relay/pkg/providers"
)

func TestSimpleEstimator_EstimateText(t *testing.T) {
	e := NewSimpleEstimator(nil)

	tests := []struct {
		name  string
		text  string
		model string
		want  int
	}{
		{"empty", "", "gpt-4o", 0},
		{"single char rounds up to one", "a", "gpt-4o", 1},
		{"gpt ratio", strings.Repeat("a", 400), "gpt-4o", 100},
		{"claude ratio", strings.Repeat("a", 350), "claude-3-opus", 100},
		{"unknown model uses default", strings.Repeat("a", 40), "mistral-large", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EstimateText(tt.text, tt.model)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d tokens, got %d", tt.want, got)
			}
		})
	}
}

func TestSimpleEstimator_LongestPrefixWins(t *testing.T) {
	e := NewSimpleEstimator(map[string]float64{
		"gpt-":   4.0,
		"gpt-4o": 2.0,
	})

	got, _ := e.EstimateText(strings.Repeat("a", 100), "gpt-4o-mini")
	if got != 50 {
		t.Errorf("expected the gpt-4o ratio to apply, got %d tokens", got)
	}
}

func TestSimpleEstimator_EstimateMessages(t *testing.T) {
	e := NewSimpleEstimator(nil)

	got, err := e.EstimateMessages(nil, "gpt-4o")
	if err != nil || got != 0 {
		t.Errorf("expected 0 tokens for no messages, got %d (%v)", got, err)
	}

	messages := []providers.Message{
		{Role: providers.RoleUser, Content: strings.Repeat("a", 40)},
	}
	got, _ = e.EstimateMessages(messages, "gpt-4o")
	// 4 framing + 10 content + 3 priming
	if got != 17 {
		t.Errorf("expected 17 tokens, got %d", got)
	}
}

func TestEstimateUsage(t *testing.T) {
	e := NewSimpleEstimator(nil)

	req := &providers.CompletionRequest{
		Model:    "gpt-4o",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: strings.Repeat("a", 40)}},
	}
	resp := &providers.CompletionResponse{Content: strings.Repeat("b", 80)}

	usage, err := EstimateUsage(e, req, resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.PromptTokens != 17 {
		t.Errorf("expected 17 prompt tokens, got %d", usage.PromptTokens)
	}
	if usage.CompletionTokens != 20 {
		t.Errorf("expected 20 completion tokens, got %d", usage.CompletionTokens)
	}
	if usage.TotalTokens != 37 {
		t.Errorf("expected 37 total tokens, got %d", usage.TotalTokens)
	}
}
