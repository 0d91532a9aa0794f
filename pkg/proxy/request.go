package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mercator-hq/relay/pkg/orchestrator"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/routing/strategies"
)

// DefaultMaxBodyBytes is the body limit used when the caller passes zero.
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// Request override headers.
const (
	// CacheControlHeader accepts "no-cache", "no-store" or both separated
	// by a comma.
	CacheControlHeader = "X-Cache-Control"

	// CacheTTLHeader overrides the entry lifetime (Go duration or seconds).
	CacheTTLHeader = "X-Cache-TTL"

	// StrategyHeader overrides the routing strategy.
	StrategyHeader = "X-Routing-Strategy"

	// ProviderHeader names a preferred provider.
	ProviderHeader = "X-Provider"

	// MetadataHeader set to "true" embeds the serving metadata in the body.
	MetadataHeader = "X-Relay-Metadata"

	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
)

// ParseChatCompletionRequest parses an HTTP request body into a ChatCompletionRequest.
// It validates the JSON format, enforces the size limit, and validates required fields.
//
// Example usage:
//
//	req, err := ParseChatCompletionRequest(r, cfg.Server.MaxBodyBytes)
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func ParseChatCompletionRequest(r *http.Request, maxBytes int64) (*types.ChatCompletionRequest, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	// Read one byte past the limit so an exact-size body is accepted.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, bodyTooLarge(maxBytes)
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, bodyTooLarge(maxBytes)
	}

	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}

	if err := req.Validate(); err != nil {
		var valErr *types.ValidationError
		if errors.As(err, &valErr) {
			code := types.CodeInvalidValue
			if strings.Contains(valErr.Message, "required") {
				code = types.CodeMissingField
			}
			return nil, &RequestError{
				Message: valErr.Message,
				Code:    code,
				Param:   valErr.Field,
			}
		}
		return nil, err
	}

	return &req, nil
}

func bodyTooLarge(maxBytes int64) *RequestError {
	return &RequestError{
		Message:  fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
		Code:     types.CodeRequestTooLarge,
		Param:    "body",
		TooLarge: true,
	}
}

// ParseOptions reads the per-request override headers. An unknown strategy,
// cache directive or malformed TTL is a client error.
func ParseOptions(h http.Header) (orchestrator.Options, error) {
	var opts orchestrator.Options

	if v := h.Get(CacheControlHeader); v != "" {
		for _, directive := range strings.Split(v, ",") {
			switch strings.ToLower(strings.TrimSpace(directive)) {
			case "no-cache":
				opts.Cache.NoCache = true
			case "no-store":
				opts.Cache.NoStore = true
			case "":
			default:
				return opts, headerError(CacheControlHeader, fmt.Sprintf("unknown cache directive %q", strings.TrimSpace(directive)))
			}
		}
	}

	if v := strings.TrimSpace(h.Get(CacheTTLHeader)); v != "" {
		ttl, err := parseTTL(v)
		if err != nil {
			return opts, headerError(CacheTTLHeader, err.Error())
		}
		opts.Cache.TTL = ttl
	}

	if v := h.Get(StrategyHeader); v != "" {
		kind, err := strategies.ParseKind(v)
		if err != nil {
			return opts, headerError(StrategyHeader, err.Error())
		}
		opts.Strategy = kind
	}

	opts.Provider = strings.TrimSpace(h.Get(ProviderHeader))

	return opts, nil
}

// parseTTL accepts a Go duration ("90s", "5m") or a bare number of seconds.
func parseTTL(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		secs, convErr := strconv.ParseInt(v, 10, 64)
		if convErr != nil {
			return 0, fmt.Errorf("invalid TTL %q", v)
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("TTL must be positive, got %q", v)
	}
	return d, nil
}

func headerError(header, msg string) *RequestError {
	return &RequestError{
		Message: msg,
		Code:    types.CodeInvalidHeader,
		Param:   header,
	}
}

// WantsMetadata reports whether the caller asked for metadata in the body.
func WantsMetadata(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(MetadataHeader)), "true")
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string

	// TooLarge marks a body that exceeded the size limit.
	TooLarge bool
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an OpenAI-compatible error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	if e.TooLarge {
		return types.NewErrorResponse(e.Message, types.ErrorTypeRequestTooLarge, e.Param, e.Code)
	}
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}
