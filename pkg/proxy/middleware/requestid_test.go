package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	wrapped := RequestID(handler)

	t.Run("generates UUID when not provided", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		requestID := w.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			t.Errorf("Request ID %q is not a UUID: %v", requestID, err)
		}
		if seen != requestID {
			t.Errorf("context request ID = %q, want %q", seen, requestID)
		}
	})

	t.Run("uses provided request ID", func(t *testing.T) {
		customID := "custom-request-id-12345"
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, customID)
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != customID {
			t.Errorf("Request ID = %v, want %v", got, customID)
		}
		if seen != customID {
			t.Errorf("context request ID = %q, want %q", seen, customID)
		}
	})

	t.Run("replaces malformed request ID", func(t *testing.T) {
		for _, bad := range []string{"has space", strings.Repeat("x", 200), "tab\there"} {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(RequestIDHeader, bad)
			w := httptest.NewRecorder()

			wrapped.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if got == bad {
				t.Errorf("malformed ID %q was reused", bad)
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("replacement %q is not a UUID", got)
			}
		}
	})

	t.Run("generates unique IDs for different requests", func(t *testing.T) {
		ids := make(map[string]bool)
		for i := 0; i < 100; i++ {
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			id := w.Header().Get(RequestIDHeader)
			if ids[id] {
				t.Fatalf("duplicate request ID %q", id)
			}
			ids[id] = true
		}
	})
}
