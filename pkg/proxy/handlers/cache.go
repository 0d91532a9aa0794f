package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/relay/pkg/cache"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/types"
)

// CacheHandler serves DELETE /v1/cache/{fingerprint}.
type CacheHandler struct {
	cache CacheInvalidator
}

// NewCacheHandler creates a cache invalidation handler.
func NewCacheHandler(inv CacheInvalidator) *CacheHandler {
	return &CacheHandler{cache: inv}
}

// ServeHTTP implements http.Handler. It answers 204 whether or not the
// entry existed, and 503 when the shared tier copy could not be removed.
func (h *CacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fingerprint := r.PathValue("fingerprint")

	if !cache.ValidFingerprint(fingerprint) {
		writeError(w, r, &proxy.RequestError{
			Message: "fingerprint must be 64 lowercase hex characters",
			Code:    types.CodeInvalidValue,
			Param:   "fingerprint",
		})
		return
	}

	if err := h.cache.Invalidate(ctx, fingerprint); err != nil {
		slog.ErrorContext(ctx, "cache invalidation failed", "fingerprint", fingerprint, "error", err)
		resp := types.NewServerError("cache invalidation failed")
		if errors.Is(err, cache.ErrSharedUnavailable) {
			resp = types.NewErrorResponse("shared cache unavailable, entry may still be cached",
				types.ErrorTypeServiceUnavailable, "", types.CodeCacheUnavailable)
		}
		if werr := proxy.WriteErrorResponse(w, resp); werr != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", werr)
		}
		return
	}

	slog.InfoContext(ctx, "cache entry invalidated", "fingerprint", fingerprint)
	w.WriteHeader(http.StatusNoContent)
}
