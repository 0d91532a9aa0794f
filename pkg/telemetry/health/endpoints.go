package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"mercator-hq/relay/pkg/routing"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// ProviderReport is the body of the provider health endpoint.
type ProviderReport struct {
	Providers []routing.ProviderSnapshot `json:"providers"`
	Eligible  int                        `json:"eligible"`
	Timestamp time.Time                  `json:"timestamp"`
}

// SnapshotSource returns the routing state of every provider.
// *routing.Engine implements it.
type SnapshotSource interface {
	Snapshot() []routing.ProviderSnapshot
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// LivenessHandler serves the liveness probe. It always answers 200.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, c.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler serves the readiness probe.
//
// Returns:
//   - 200 OK: ready, or degraded by a non-critical component
//   - 503 Service Unavailable: a critical component is failing
//
// Example response (degraded):
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "providers": {"status": "ok", "critical": true},
//	        "cache_shared": {"status": "unhealthy", "critical": false, "message": "shared cache tier \"redis\" unreachable, serving from the fast tier only"}
//	    },
//	    "timestamp": "2026-03-02T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}

		status := c.CheckReadiness(r.Context())

		code := http.StatusOK
		if !status.Ready() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
	}
}

// ProvidersHandler reports breaker state and routing statistics per
// provider.
func ProvidersHandler(src SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}

		report := ProviderReport{
			Providers: src.Snapshot(),
			Timestamp: time.Now(),
		}
		for _, p := range report.Providers {
			if p.Breaker.StateName != "open" {
				report.Eligible++
			}
		}
		writeJSON(w, r, http.StatusOK, report)
	}
}

// VersionHandler returns build information.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, info)
	}
}
