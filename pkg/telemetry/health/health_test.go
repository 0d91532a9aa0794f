package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/relay/pkg/circuitbreaker"
	"mercator-hq/relay/pkg/routing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{"default timeout", 0, 5 * time.Second},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}
			if len(checker.ListChecks()) != 0 {
				t.Errorf("expected no checks, got %v", checker.ListChecks())
			}
		})
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("a", func(context.Context) error { return nil }, true)
	checker.RegisterCheck("b", func(context.Context) error { return nil }, false)
	checker.RegisterCheck("a", func(context.Context) error { return errors.New("replaced") }, true)

	if n := len(checker.ListChecks()); n != 2 {
		t.Fatalf("expected 2 checks, got %d", n)
	}

	status := checker.CheckReadiness(context.Background())
	if status.Checks["a"].Message != "replaced" {
		t.Errorf("expected the replacing check to run, got %+v", status.Checks["a"])
	}

	checker.UnregisterCheck("a")
	if n := len(checker.ListChecks()); n != 1 {
		t.Errorf("expected 1 check after unregister, got %d", n)
	}
}

func TestCheckReadiness(t *testing.T) {
	fail := func(context.Context) error { return errors.New("down") }
	pass := func(context.Context) error { return nil }

	tests := []struct {
		name     string
		register func(c *Checker)
		want     string
		ready    bool
	}{
		{
			name:     "no checks",
			register: func(c *Checker) {},
			want:     StatusReady,
			ready:    true,
		},
		{
			name: "all healthy",
			register: func(c *Checker) {
				c.RegisterCheck("providers", pass, true)
				c.RegisterCheck("cache_shared", pass, false)
			},
			want:  StatusReady,
			ready: true,
		},
		{
			name: "non-critical failure degrades",
			register: func(c *Checker) {
				c.RegisterCheck("providers", pass, true)
				c.RegisterCheck("cache_shared", fail, false)
			},
			want:  StatusDegraded,
			ready: true,
		},
		{
			name: "critical failure is not ready",
			register: func(c *Checker) {
				c.RegisterCheck("providers", fail, true)
				c.RegisterCheck("cache_shared", fail, false)
			},
			want:  StatusNotReady,
			ready: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			tt.register(checker)

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("expected status %q, got %q", tt.want, status.Status)
			}
			if status.Ready() != tt.ready {
				t.Errorf("expected Ready() = %v", tt.ready)
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return nil
	}, true)

	start := time.Now()
	status := checker.CheckReadiness(context.Background())

	if time.Since(start) > 500*time.Millisecond {
		t.Error("expected the check to be cut off by its timeout")
	}
	result := status.Checks["slow"]
	if result.Status != StatusUnhealthy || result.Message != ErrCheckTimeout.Error() {
		t.Errorf("expected timeout result, got %+v", result)
	}
	if status.Status != StatusNotReady {
		t.Errorf("expected not_ready, got %q", status.Status)
	}
}

type fakeBreakers map[string]*circuitbreaker.Breaker

func (f fakeBreakers) ProviderIDs() []string {
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	return ids
}

func (f fakeBreakers) Breaker(id string) *circuitbreaker.Breaker {
	return f[id]
}

func openBreaker(t *testing.T, b *circuitbreaker.Breaker) {
	t.Helper()
	adm, err := b.Allow()
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	adm.Done(false)
	if b.State() != circuitbreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", b.State())
	}
}

func TestProvidersCheck(t *testing.T) {
	cfg := circuitbreaker.Config{FailureThreshold: 1, OpenDuration: time.Minute}
	breakers := fakeBreakers{
		"openai":    circuitbreaker.New("openai", cfg),
		"anthropic": circuitbreaker.New("anthropic", cfg),
	}
	check := ProvidersCheck(breakers)

	if err := check(context.Background()); err != nil {
		t.Errorf("expected healthy providers, got %v", err)
	}

	openBreaker(t, breakers["openai"])
	if err := check(context.Background()); err != nil {
		t.Errorf("expected one eligible provider to be enough, got %v", err)
	}

	openBreaker(t, breakers["anthropic"])
	err := check(context.Background())
	if err == nil || !strings.Contains(err.Error(), "all provider breakers open") {
		t.Errorf("expected all-open error, got %v", err)
	}

	if err := ProvidersCheck(fakeBreakers{})(context.Background()); err == nil {
		t.Error("expected an error without providers")
	}
}

type fakeShared struct {
	backend   string
	available bool
}

func (f fakeShared) SharedBackend() string { return f.backend }
func (f fakeShared) SharedAvailable() bool { return f.available }

func TestSharedCacheCheck(t *testing.T) {
	tests := []struct {
		name    string
		shared  fakeShared
		wantErr bool
	}{
		{"no shared tier", fakeShared{backend: "none"}, false},
		{"reachable", fakeShared{backend: "redis", available: true}, false},
		{"cooling down", fakeShared{backend: "redis"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SharedCacheCheck(tt.shared)(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error = %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("providers", func(context.Context) error { return errors.New("down") }, true)
	handler := checker.LivenessHandler()

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodHead, http.StatusOK},
		{http.MethodPost, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(tt.method, "/health", nil))

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.method == http.MethodHead && rec.Body.Len() != 0 {
				t.Error("expected empty body for HEAD")
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		critical bool
		want     int
		status   string
	}{
		{"degraded still serves", false, http.StatusOK, StatusDegraded},
		{"critical failure", true, http.StatusServiceUnavailable, StatusNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			checker.RegisterCheck("component", func(context.Context) error { return errors.New("down") }, tt.critical)

			rec := httptest.NewRecorder()
			checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}

			var body HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.status {
				t.Errorf("expected status %q, got %q", tt.status, body.Status)
			}
		})
	}
}

type fakeSnapshots []routing.ProviderSnapshot

func (f fakeSnapshots) Snapshot() []routing.ProviderSnapshot { return f }

func TestProvidersHandler(t *testing.T) {
	src := fakeSnapshots{
		{ID: "openai", Breaker: circuitbreaker.Snapshot{StateName: "closed"}},
		{ID: "anthropic", Breaker: circuitbreaker.Snapshot{StateName: "open"}},
	}

	rec := httptest.NewRecorder()
	ProvidersHandler(src)(rec, httptest.NewRequest(http.MethodGet, "/health/providers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var report ProviderReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(report.Providers) != 2 {
		t.Errorf("expected 2 providers, got %d", len(report.Providers))
	}
	if report.Eligible != 1 {
		t.Errorf("expected 1 eligible provider, got %d", report.Eligible)
	}
	if report.Providers[1].Breaker.StateName != "open" {
		t.Errorf("expected breaker state to round-trip, got %+v", report.Providers[1].Breaker)
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc123", "2026-01-01")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" {
		t.Errorf("unexpected version info %+v", info)
	}
	if info.GoVersion == "" {
		t.Error("expected go version")
	}
}
