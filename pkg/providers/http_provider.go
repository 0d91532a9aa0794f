package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// maxErrorBody bounds how much of an error response is kept in error messages.
const maxErrorBody = 4096

// HTTPProvider is the base implementation for HTTP-based provider adapters.
// It provides connection pooling, timeout handling and the mapping from HTTP
// failures onto typed errors.
//
// Concrete provider implementations (OpenAI, Anthropic, etc.) should embed this
// struct and implement the Complete method.
type HTTPProvider struct {
	// config contains the provider configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	// Create HTTP transport with connection pooling
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		DisableCompression:  false,
		// Enable HTTP/2
		ForceAttemptHTTP2: true,
	}

	// Create HTTP client with timeout
	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}

	return &HTTPProvider{
		config: config,
		client: client,
	}
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetType returns the provider's type.
func (p *HTTPProvider) GetType() string {
	return p.config.Type
}

// GetConfig returns the provider's configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// DoRequest performs exactly one HTTP request. A 2xx response is returned
// to the caller, who must close its body. Every other outcome is returned as
// one of this package's typed errors so that Classify can route it:
//
//	401, 403        -> *AuthError
//	404             -> *ModelNotFoundError
//	408, 504        -> *TimeoutError
//	429             -> *RateLimitError
//	other 4xx / 5xx -> *ProviderError
//	transport error -> *TimeoutError or *ConnectionError
//	caller canceled -> error wrapping context.Canceled
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, &ConfigError{
			Provider: p.config.Name,
			Field:    "base_url",
			Message:  fmt.Sprintf("failed to create request: %v", err),
		}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("sending request to provider",
		"provider", p.config.Name,
		"method", method,
		"url", url,
	)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.transportError(ctx, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	return nil, p.statusError(resp, string(errorBody))
}

// transportError classifies a failure that happened before a status line
// was received.
func (p *HTTPProvider) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: request canceled: %w", p.config.Name, ctx.Err())
	}
	if ctx.Err() != nil {
		return &TimeoutError{
			Provider: p.config.Name,
			Timeout:  p.config.Timeout,
			Cause:    ctx.Err(),
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{
			Provider: p.config.Name,
			Timeout:  p.config.Timeout,
			Cause:    err,
		}
	}

	return &ConnectionError{
		Provider: p.config.Name,
		Cause:    err,
	}
}

// statusError maps a non-2xx status onto a typed error.
func (p *HTTPProvider) statusError(resp *http.Response, body string) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{
			Provider: p.config.Name,
			Message:  body,
		}

	case http.StatusNotFound:
		return &ModelNotFoundError{
			Provider: p.config.Name,
			Message:  body,
		}

	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &TimeoutError{
			Provider: p.config.Name,
			Timeout:  p.config.Timeout,
			Cause:    fmt.Errorf("upstream status %d: %s", resp.StatusCode, body),
		}

	case http.StatusTooManyRequests:
		return &RateLimitError{
			Provider:   p.config.Name,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    body,
		}

	default:
		return &ProviderError{
			Provider:   p.config.Name,
			StatusCode: resp.StatusCode,
			Message:    body,
		}
	}
}

// DoJSONRequest performs a JSON request and decodes the response.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody interface{}, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return &ValidationError{
				Field:   "request",
				Message: fmt.Sprintf("failed to marshal request: %v", err),
			}
		}
	}

	resp, err := p.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		// The body stream broke mid-read; this is a transport failure.
		return p.transportError(ctx, err)
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    p.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close releases idle pooled connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	slog.Info("provider closed", "provider", p.config.Name)
	return nil
}

// ResolveUpstreamModel rewrites req's model through the provider's aliases.
// It returns a *ModelNotFoundError without touching the network when the
// provider does not serve the model.
func (p *HTTPProvider) ResolveUpstreamModel(req *CompletionRequest) (*CompletionRequest, error) {
	upstream, ok := p.config.ResolveModel(req.Model)
	if !ok {
		return nil, &ModelNotFoundError{
			Provider: p.config.Name,
			Model:    req.Model,
		}
	}
	if upstream == req.Model {
		return req, nil
	}
	return req.WithModel(upstream), nil
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

// ValidateRequest performs the checks every adapter runs before dispatch.
func ValidateRequest(req *CompletionRequest) error {
	if req == nil {
		return &ValidationError{
			Field:   "request",
			Message: "request cannot be nil",
		}
	}

	if req.Model == "" {
		return &ValidationError{
			Field:   "model",
			Message: "model is required",
		}
	}

	if len(req.Messages) == 0 {
		return &ValidationError{
			Field:   "messages",
			Message: "at least one message is required",
		}
	}

	return nil
}

// TagModel fills in the model id on a *ModelNotFoundError raised from an
// HTTP 404, where the status alone does not say which model was unknown.
func TagModel(err error, model string) error {
	var modelErr *ModelNotFoundError
	if errors.As(err, &modelErr) && modelErr.Model == "" {
		modelErr.Model = model
	}
	return err
}
