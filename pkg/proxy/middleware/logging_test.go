package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAccessLog(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  int
		wantLevel string
	}{
		{
			name: "implicit 200",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("X-Cache", "hit")
				w.Header().Set("X-Provider", "openai")
				_, _ = w.Write([]byte("ok"))
			},
			wantCode:  http.StatusOK,
			wantLevel: "INFO",
		},
		{
			name: "first status wins",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.WriteHeader(http.StatusTeapot)
			},
			wantCode:  http.StatusNotFound,
			wantLevel: "WARN",
		},
		{
			name:      "no write at all",
			handler:   func(http.ResponseWriter, *http.Request) {},
			wantCode:  http.StatusOK,
			wantLevel: "INFO",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantCode:  http.StatusServiceUnavailable,
			wantLevel: "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			w := httptest.NewRecorder()
			AccessLog(logger)(tt.handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			if w.Code != tt.wantCode {
				t.Errorf("response status = %d, want %d", w.Code, tt.wantCode)
			}

			var record map[string]any
			if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
				t.Fatalf("log output is not one JSON record: %v\n%s", err, buf.String())
			}
			if record["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", record["level"], tt.wantLevel)
			}
			if got := int(record["status"].(float64)); got != tt.wantCode {
				t.Errorf("logged status = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestAccessLog_Metadata(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Cache", "hit")
		w.Header().Set("X-Cache-Tier", "fast")
		_, _ = w.Write([]byte("hello"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid log output: %v", err)
	}
	if record["cache"] != "hit" || record["cache_tier"] != "fast" {
		t.Errorf("cache fields = %v/%v, want hit/fast", record["cache"], record["cache_tier"])
	}
	if record["bytes"] != float64(5) {
		t.Errorf("bytes = %v, want 5", record["bytes"])
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
