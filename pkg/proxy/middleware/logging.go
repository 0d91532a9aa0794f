package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// AccessLog writes one record per request once the handler returns: info
// for 2xx and 3xx, warn for 4xx and error for 5xx. The serving metadata
// comes from the X-Cache, X-Cache-Tier, X-Provider and X-Attempts headers
// the chat handler sets, so non-chat routes log them empty.
func AccessLog(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			h := rec.Header()
			logger.Log(r.Context(), level, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"latency_ms", time.Since(start).Milliseconds(),
				"cache", h.Get("X-Cache"),
				"cache_tier", h.Get("X-Cache-Tier"),
				"provider", h.Get("X-Provider"),
				"attempts", h.Get("X-Attempts"),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}
