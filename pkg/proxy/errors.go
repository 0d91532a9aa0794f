package proxy

import (
	"context"
	"errors"

	"mercator-hq/relay/pkg/orchestrator"
	"mercator-hq/relay/pkg/proxy/types"
)

// HandleError converts request and orchestrator errors to OpenAI-compatible
// error responses. The error type carries the status code:
//
//	no eligible provider  503
//	all providers failed  502
//	deadline exceeded     504
//	invalid model         404
//	invalid request       400
//
// Anything else is an internal error whose detail is not echoed back.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	switch {
	case errors.Is(err, orchestrator.ErrInvalidModel):
		return types.NewNotFoundError(err.Error(), "model", types.CodeModelNotFound)
	case errors.Is(err, orchestrator.ErrInvalidRequest):
		return types.NewInvalidRequestError(err.Error(), "", types.CodeInvalidValue)
	case errors.Is(err, orchestrator.ErrNoEligibleProvider):
		return types.NewServiceUnavailableError(err.Error())
	case errors.Is(err, orchestrator.ErrAllProvidersFailed):
		return types.NewBadGatewayError(err.Error())
	case errors.Is(err, orchestrator.ErrRequestDeadlineExceeded):
		return types.NewGatewayTimeoutError(err.Error())
	case errors.Is(err, context.Canceled):
		return types.NewErrorResponse("client closed request", types.ErrorTypeClientClosed, "", "")
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}
