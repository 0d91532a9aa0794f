package handlers

import (
	"log/slog"
	"net/http"

	"mercator-hq/relay/pkg/orchestrator"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
)

// ChatHandler serves POST /v1/chat/completions.
type ChatHandler struct {
	orch         Orchestrator
	maxBodyBytes int64
}

// NewChatHandler creates a chat handler. maxBodyBytes caps the request
// body; zero uses proxy.DefaultMaxBodyBytes.
func NewChatHandler(orch Orchestrator, maxBodyBytes int64) *ChatHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = proxy.DefaultMaxBodyBytes
	}
	return &ChatHandler{orch: orch, maxBodyBytes: maxBodyBytes}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, &proxy.RequestError{
			Message: "method " + r.Method + " not allowed, use POST",
			Code:    "method_not_allowed",
			Param:   "method",
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes+1)
	chatReq, err := proxy.ParseChatCompletionRequest(r, h.maxBodyBytes)
	if err != nil {
		slog.WarnContext(ctx, "rejected chat completion request", "error", err)
		writeError(w, r, err)
		return
	}

	opts, err := proxy.ParseOptions(r.Header)
	if err != nil {
		slog.WarnContext(ctx, "rejected request headers", "error", err)
		writeError(w, r, err)
		return
	}

	res, err := h.orch.Handle(ctx, &orchestrator.Request{
		ID:         middleware.GetRequestID(ctx),
		Completion: proxy.ToCompletionRequest(chatReq),
		Options:    opts,
	})
	if res != nil {
		proxy.SetMetadataHeaders(w, &res.Metadata)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := proxy.FormatChatCompletionResponse(res.Response, chatReq.Model)
	if proxy.WantsMetadata(r) {
		resp.Relay = proxy.BodyMetadata(&res.Metadata)
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if werr := proxy.WriteErrorResponse(w, proxy.HandleError(err)); werr != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", "error", werr)
	}
}
