package types

import "net/http"

// ErrorResponse represents an OpenAI-compatible error response.
// This is returned for all error conditions to ensure compatibility with
// OpenAI SDKs and tools.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error. See the ErrorType constants.
	Type string `json:"type"`

	// Param is the name of the parameter that caused the error (if applicable).
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error type constants. The names follow the OpenAI error format.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeNotFound indicates an unknown model or resource (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeRequestTooLarge indicates an oversized body (413).
	ErrorTypeRequestTooLarge = "request_too_large"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeBadGateway indicates every provider failed (502).
	ErrorTypeBadGateway = "bad_gateway"

	// ErrorTypeServiceUnavailable indicates no provider could be tried (503).
	ErrorTypeServiceUnavailable = "service_unavailable"

	// ErrorTypeGatewayTimeout indicates the request deadline fired (504).
	ErrorTypeGatewayTimeout = "gateway_timeout"

	// ErrorTypeClientClosed indicates the caller went away (499).
	ErrorTypeClientClosed = "client_closed_request"
)

// StatusClientClosedRequest is the non-standard status logged when the
// caller disconnects before the response is ready.
const StatusClientClosedRequest = 499

// Error code constants for common error scenarios.
const (
	CodeMissingField = "missing_field"

	CodeInvalidValue = "invalid_value"

	CodeInvalidJSON = "invalid_json"

	CodeInvalidHeader = "invalid_header"

	// CodeModelNotFound indicates no provider knows the requested model.
	CodeModelNotFound = "model_not_found"

	// CodeNoEligibleProvider indicates every provider for the model is
	// unavailable or its breaker is open.
	CodeNoEligibleProvider = "no_eligible_provider"

	// CodeAllProvidersFailed indicates every candidate was tried and failed.
	CodeAllProvidersFailed = "all_providers_failed"

	// CodeDeadlineExceeded indicates the request deadline fired.
	CodeDeadlineExceeded = "deadline_exceeded"

	CodeRequestTooLarge = "request_too_large"

	CodeNotFound = "not_found"

	CodeInternalError = "internal_error"

	// CodeCacheUnavailable indicates the shared cache tier could not be reached.
	CodeCacheUnavailable = "cache_unavailable"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewNotFoundError creates an error response for unknown models or resources (404).
func NewNotFoundError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeNotFound, param, code)
}

// NewBadGatewayError creates an error response for exhausted providers (502).
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, "", CodeAllProvidersFailed)
}

// NewServiceUnavailableError creates an error response when no provider is eligible (503).
func NewServiceUnavailableError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServiceUnavailable, "", CodeNoEligibleProvider)
}

// NewGatewayTimeoutError creates an error response for an exceeded request deadline (504).
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeGatewayTimeout, "", CodeDeadlineExceeded)
}

// HTTPStatusCode returns the HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorTypeBadGateway:
		return http.StatusBadGateway
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeGatewayTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeClientClosed:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
