package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/types"
)

// Recover turns a handler panic into an OpenAI-format 500 and logs the
// panic value with its stack. If the handler already sent a status line the
// response is left as is. http.ErrAbortHandler is re-raised so net/http
// can abort the connection quietly.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				logger.ErrorContext(r.Context(), "panic in handler",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
					"committed", rec.committed(),
					"stack", string(debug.Stack()),
				)
				if rec.committed() {
					return
				}
				_ = proxy.WriteErrorResponse(rec, types.NewServerError("internal error"))
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
