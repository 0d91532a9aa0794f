package main

import (
	"reflect"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/routing/strategies"
)

// applyConfig applies the live-reloadable settings of next: the routing
// strategy, the retry policy, the orchestrator deadlines and the default
// cache TTL. It returns the sections whose changes only take effect after
// a restart.
func (a *app) applyConfig(next *config.Config) []string {
	if kind, err := strategies.ParseKind(next.Routing.Strategy); err == nil {
		if err := a.engine.SetStrategy(kind); err != nil {
			a.logger.Error("failed to apply routing strategy", "strategy", next.Routing.Strategy, "error", err)
		}
	}

	a.orch.SetConfig(a.orchestratorConfig(next))

	if a.cache != nil {
		a.cache.SetDefaultTTL(next.Cache.DefaultTTL)
	}

	restart := restartRequired(a.cfg, next, a.cache != nil)
	a.cfg = next

	a.logger.Info("configuration applied",
		"strategy", next.Routing.Strategy,
		"request_deadline", next.Orchestrator.RequestDeadline.String(),
		"attempt_timeout", next.Orchestrator.AttemptTimeout.String(),
		"retry_max_attempts", next.Retry.MaxAttempts,
		"cache_default_ttl", next.Cache.DefaultTTL.String(),
	)
	for _, section := range restart {
		a.logger.Warn("configuration change requires restart", "section", section)
	}
	return restart
}

// restartRequired lists the sections that differ between prev and next
// once the live-reloadable fields are masked out. cacheBuilt reports
// whether the cache tiers exist, in which case cache.enabled toggles live.
func restartRequired(prev, next *config.Config, cacheBuilt bool) []string {
	var changed []string

	if !reflect.DeepEqual(prev.Server, next.Server) {
		changed = append(changed, "server")
	}
	if !reflect.DeepEqual(prev.Providers, next.Providers) {
		changed = append(changed, "providers")
	}

	pr, nr := prev.Routing, next.Routing
	pr.Strategy, nr.Strategy = "", ""
	if !reflect.DeepEqual(pr, nr) {
		changed = append(changed, "routing")
	}

	pc, nc := prev.Cache, next.Cache
	if !cacheBuilt && nc.Enabled {
		changed = append(changed, "cache.enabled")
	}
	pc.DefaultTTL, nc.DefaultTTL = 0, 0
	pc.Enabled, nc.Enabled = false, false
	if !reflect.DeepEqual(pc, nc) {
		changed = append(changed, "cache")
	}

	if !reflect.DeepEqual(prev.Telemetry, next.Telemetry) {
		changed = append(changed, "telemetry")
	}

	return changed
}
