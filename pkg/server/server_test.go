package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/relay/pkg/config"
)

func named(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, name)
	})
}

func testRoutes() Routes {
	return Routes{
		Chat:        named("chat"),
		Cache:       http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "cache:"+r.PathValue("fingerprint")) }),
		Liveness:    named("live"),
		Readiness:   named("ready"),
		Providers:   named("providers"),
		Version:     named("version"),
		Metrics:     named("metrics"),
		MetricsPath: "/metrics",
	}
}

func TestHandler_Routes(t *testing.T) {
	h := NewServer(config.ServerConfig{}, testRoutes(), nil).Handler()

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{http.MethodPost, "/v1/chat/completions", http.StatusOK, "chat"},
		{http.MethodGet, "/v1/chat/completions", http.StatusMethodNotAllowed, ""},
		{http.MethodDelete, "/v1/cache/abc123", http.StatusOK, "cache:abc123"},
		{http.MethodGet, "/health", http.StatusOK, "live"},
		{http.MethodGet, "/ready", http.StatusOK, "ready"},
		{http.MethodGet, "/health/providers", http.StatusOK, "providers"},
		{http.MethodGet, "/version", http.StatusOK, "version"},
		{http.MethodGet, "/metrics", http.StatusOK, "metrics"},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("X-Request-ID missing; middleware chain not applied")
			}
		})
	}
}

func TestHandler_NilRoutesNotMounted(t *testing.T) {
	h := NewServer(config.ServerConfig{}, Routes{Chat: named("chat")}, nil).Handler()

	for _, path := range []string{"/metrics", "/health", "/version"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, w.Code)
		}
	}
}

func TestHandler_RecoversPanics(t *testing.T) {
	routes := Routes{Chat: http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })}
	h := NewServer(config.ServerConfig{}, routes, nil).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestServer_Lifecycle(t *testing.T) {
	release := make(chan struct{})
	routes := testRoutes()
	routes.Chat = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = io.WriteString(w, "slow")
	})

	srv := NewServer(config.ServerConfig{ShutdownTimeout: 5 * time.Second}, routes, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	waitFor(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	})

	if !srv.IsRunning() {
		t.Fatal("IsRunning() = false while serving")
	}
	if srv.Addr().String() != ln.Addr().String() {
		t.Errorf("Addr() = %v, want %v", srv.Addr(), ln.Addr())
	}
	if err := srv.Serve(ctx, mustListen(t)); err == nil {
		t.Error("second Serve() succeeded, want already running error")
	}

	// An in-flight request survives the shutdown signal.
	slow := make(chan string, 1)
	go func() {
		resp, err := http.Post(base+"/v1/chat/completions", "application/json", nil)
		if err != nil {
			slow <- "error: " + err.Error()
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		slow <- string(body)
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	if got := <-slow; got != "slow" {
		t.Errorf("in-flight response = %q, want slow", got)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestServer_Stop(t *testing.T) {
	srv := NewServer(config.ServerConfig{ShutdownTimeout: time.Second}, testRoutes(), nil)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), mustListen(t)) }()

	waitFor(t, srv.IsRunning)
	srv.Stop()
	srv.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after Stop")
	}
}

func TestServer_StartBadAddress(t *testing.T) {
	srv := NewServer(config.ServerConfig{ListenAddress: "256.0.0.1:99999"}, testRoutes(), nil)
	if err := srv.Start(context.Background()); err == nil {
		t.Error("Start() succeeded on an invalid address")
	}
}

func mustListen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
