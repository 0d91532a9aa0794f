package providers

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// TestConfig returns a test provider configuration.
func TestConfig(name, providerType string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                providerType,
		BaseURL:             "http://localhost:8080",
		APIKey:              "test-key",
		Timeout:             5 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestConfigWithURL returns a test config with a specific base URL.
func TestConfigWithURL(name, providerType, baseURL string) providers.ProviderConfig {
	config := TestConfig(name, providerType)
	config.BaseURL = baseURL
	return config
}

// TestMessage creates a test message.
func TestMessage(role, content string) providers.Message {
	return providers.Message{
		Role:    role,
		Content: content,
	}
}

// TestCompletionRequest creates a test completion request.
func TestCompletionRequest(model string, messages ...providers.Message) *providers.CompletionRequest {
	if len(messages) == 0 {
		messages = []providers.Message{TestMessage(providers.RoleUser, "Hello")}
	}
	temperature := 0.7
	return &providers.CompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   100,
	}
}

// AssertKind fails the test unless err classifies as want.
func AssertKind(t *testing.T, err error, want providers.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := providers.Classify(err); got != want {
		t.Fatalf("expected kind %s, got %s (%T: %v)", want, got, err, err)
	}
}

// AssertErrorAs fails the test unless err's chain contains a target's type.
func AssertErrorAs(t *testing.T, err error, target interface{}) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.As(err, target) {
		t.Fatalf("expected %T in chain, got %T: %v", target, err, err)
	}
}
