package openai

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	testhelpers "mercator-hq/relay/internal/providers"
	"mercator-hq/relay/pkg/providers"
)

func newTestProvider(t *testing.T, mock *testhelpers.MockServer, models map[string]string) *Provider {
	t.Helper()
	config := testhelpers.TestConfigWithURL("openai", "openai", mock.URL()+"/v1")
	config.Models = models
	provider, err := NewProvider(config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestOpenAIProvider_Complete(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockOpenAIResponse("Hello, world!", "gpt-4o"),
	})

	provider := newTestProvider(t, mock, nil)

	resp, err := provider.Complete(context.Background(), testhelpers.TestCompletionRequest("gpt-4o"))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Content != "Hello, world!" {
		t.Errorf("expected content %q, got %q", "Hello, world!", resp.Content)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("expected finish reason stop, got %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("expected total tokens 30, got %d", resp.Usage.TotalTokens)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 upstream request, got %d", len(reqs))
	}
	if got := reqs[0].Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("expected bearer auth header, got %q", got)
	}
}

func TestOpenAIProvider_ModelAlias(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockOpenAIResponse("ok", "gpt-4o-2024-08-06"),
	})

	provider := newTestProvider(t, mock, map[string]string{"gpt-4o": "gpt-4o-2024-08-06"})

	if _, err := provider.Complete(context.Background(), testhelpers.TestCompletionRequest("gpt-4o")); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	var sent chatRequest
	if err := mock.LastRequestJSON(&sent); err != nil {
		t.Fatalf("failed to decode upstream request: %v", err)
	}
	if sent.Model != "gpt-4o-2024-08-06" {
		t.Errorf("expected upstream model alias, got %q", sent.Model)
	}
}

func TestOpenAIProvider_UndeclaredModel(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	provider := newTestProvider(t, mock, map[string]string{"gpt-4o": ""})

	_, err := provider.Complete(context.Background(), testhelpers.TestCompletionRequest("o1-preview"))
	testhelpers.AssertKind(t, err, providers.KindInvalidModel)

	if mock.GetRequestCount() != 0 {
		t.Error("undeclared model must not reach the network")
	}
}

func TestOpenAIProvider_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name     string
		response testhelpers.MockResponse
		want     providers.ErrorKind
	}{
		{"auth", testhelpers.MockAuthError(), providers.KindPermanent},
		{"rate limit", testhelpers.MockRateLimitError(60), providers.KindRateLimited},
		{"server error", testhelpers.MockServerError(), providers.KindTransient},
		{"unknown model", testhelpers.MockModelNotFound("gpt-4o"), providers.KindInvalidModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testhelpers.NewMockServer()
			defer mock.Close()
			mock.SetResponse("/v1/chat/completions", tt.response)

			provider := newTestProvider(t, mock, nil)
			_, err := provider.Complete(context.Background(), testhelpers.TestCompletionRequest("gpt-4o"))
			testhelpers.AssertKind(t, err, tt.want)

			if mock.GetRequestCount() != 1 {
				t.Errorf("expected a single upstream call, got %d", mock.GetRequestCount())
			}
		})
	}
}

func TestOpenAIProvider_UnknownModelIsTagged(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", testhelpers.MockModelNotFound("gpt-4o"))

	provider := newTestProvider(t, mock, nil)
	_, err := provider.Complete(context.Background(), testhelpers.TestCompletionRequest("gpt-4o"))

	var modelErr *providers.ModelNotFoundError
	testhelpers.AssertErrorAs(t, err, &modelErr)
	if modelErr.Model != "gpt-4o" {
		t.Errorf("expected model to be tagged, got %q", modelErr.Model)
	}
}

func TestOpenAIProvider_AttemptTimeout(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", testhelpers.MockTimeoutError(2*time.Second))

	provider := newTestProvider(t, mock, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := provider.Complete(ctx, testhelpers.TestCompletionRequest("gpt-4o"))
	testhelpers.AssertKind(t, err, providers.KindTimeout)
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       map[string]interface{}{"id": "x", "choices": []interface{}{}},
	})

	provider := newTestProvider(t, mock, nil)
	_, err := provider.Complete(context.Background(), testhelpers.TestCompletionRequest("gpt-4o"))

	var parseErr *providers.ParseError
	testhelpers.AssertErrorAs(t, err, &parseErr)
}

func TestNewProvider_Validation(t *testing.T) {
	if _, err := NewProvider(providers.ProviderConfig{APIKey: "k"}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := NewProvider(providers.ProviderConfig{Name: "openai"}); err == nil {
		t.Error("expected error for missing API key")
	}

	p, err := NewProvider(providers.ProviderConfig{Name: "openai", APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.GetConfig().BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", p.GetConfig().BaseURL)
	}
	if p.GetType() != "openai" {
		t.Errorf("expected type openai, got %q", p.GetType())
	}
}

func TestNewChatRequest_ToolCalls(t *testing.T) {
	req := &providers.CompletionRequest{
		Model: "gpt-4o",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "weather?"},
			{Role: providers.RoleAssistant, ToolCalls: []providers.ToolCall{{
				ID:       "call_1",
				Type:     providers.ToolTypeFunction,
				Function: providers.FunctionCall{Name: "get_weather", Arguments: `{"city":"Paris"}`},
			}}},
			{Role: providers.RoleTool, ToolCallID: "call_1", Content: "sunny"},
		},
	}

	out := newChatRequest(req)
	if out.N != 1 {
		t.Errorf("expected n=1, got %d", out.N)
	}
	if len(out.Messages[1].ToolCalls) != 1 || out.Messages[1].ToolCalls[0].Function.Name != "get_weather" {
		t.Errorf("expected assistant tool call to be forwarded, got %+v", out.Messages[1].ToolCalls)
	}
	if out.Messages[2].ToolCallID != "call_1" {
		t.Errorf("expected tool call id on tool message, got %q", out.Messages[2].ToolCallID)
	}
}

func TestNewChatRequest_SamplingParameters(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name string
		req  *providers.CompletionRequest
		want []string
		omit []string
	}{
		{
			name: "explicit zero",
			req:  &providers.CompletionRequest{Model: "gpt-4o", Temperature: &zero, TopP: &zero},
			want: []string{`"temperature":0`, `"top_p":0`},
		},
		{
			name: "unset",
			req:  &providers.CompletionRequest{Model: "gpt-4o"},
			omit: []string{`"temperature"`, `"top_p"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(newChatRequest(tt.req))
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(body), w) {
					t.Errorf("expected %s in %s", w, body)
				}
			}
			for _, o := range tt.omit {
				if strings.Contains(string(body), o) {
					t.Errorf("expected no %s in %s", o, body)
				}
			}
		})
	}
}

func TestFinishReason(t *testing.T) {
	cases := map[string]string{
		"stop":           providers.FinishReasonStop,
		"length":         providers.FinishReasonLength,
		"function_call":  providers.FinishReasonToolCalls,
		"content_filter": providers.FinishReasonContentFilter,
		"weird":          "weird",
	}
	for in, want := range cases {
		if got := finishReason(in); got != want {
			t.Errorf("finishReason(%q) = %q, want %q", in, got, want)
		}
	}
}
