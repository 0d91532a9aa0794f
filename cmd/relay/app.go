package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/relay/pkg/cache"
	"mercator-hq/relay/pkg/circuitbreaker"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/orchestrator"
	"mercator-hq/relay/pkg/processing/costs"
	"mercator-hq/relay/pkg/processing/tokens"
	"mercator-hq/relay/pkg/providerfactory"
	"mercator-hq/relay/pkg/proxy/handlers"
	"mercator-hq/relay/pkg/routing"
	"mercator-hq/relay/pkg/routing/strategies"
	"mercator-hq/relay/pkg/server"
	"mercator-hq/relay/pkg/telemetry/health"
	"mercator-hq/relay/pkg/telemetry/metrics"
)

// healthCheckTimeout bounds each readiness check.
const healthCheckTimeout = 2 * time.Second

// app holds every long-lived component of a running relay.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	collector *metrics.Collector
	providers *providerfactory.Manager
	engine    *routing.Engine
	cache     *cache.Manager
	janitor   *cache.Janitor
	orch      *orchestrator.Orchestrator
	health    *health.Checker
	server    *server.Server
}

// newApp builds the component graph for cfg. Nothing is started; call
// start and then close on shutdown. On error every component built so far
// is released.
func newApp(cfg *config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	a.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	// Providers that fail to build are logged and left out of routing; the
	// relay serves with whatever loaded.
	a.providers = providerfactory.NewManager()
	if loadErr := a.providers.LoadFromConfig(cfg.Providers); loadErr != nil {
		logger.Warn("some providers failed to initialize", "error", loadErr)
	}
	if a.providers.ProviderCount() == 0 {
		return nil, fmt.Errorf("no provider could be initialized")
	}

	if a.engine, err = newEngine(cfg, loadedProviders(cfg.Providers, a.providers.GetProviderNames()), a.collector, logger); err != nil {
		return nil, err
	}
	for _, id := range a.engine.ProviderIDs() {
		a.collector.InitProvider(id, a.engine.Breaker(id).State())
	}

	if cfg.Cache.Enabled {
		if a.cache, err = newCache(cfg.Cache, a.collector); err != nil {
			return nil, err
		}
		a.janitor = cache.NewJanitor(a.cache, cfg.Cache.JanitorSchedule)
	}

	estimator := tokens.NewTiktokenEstimator(tokens.NewSimpleEstimator(nil))
	opts := []orchestrator.Option{
		orchestrator.WithObserver(a.collector),
		orchestrator.WithCostCalculator(costs.NewCalculator(estimator)),
	}
	if a.cache != nil {
		opts = append(opts, orchestrator.WithCache(a.cache))
	}
	a.orch = orchestrator.New(a.engine, a.providers, a.orchestratorConfig(cfg), opts...)

	a.health = health.New(healthCheckTimeout)
	a.health.RegisterCheck("providers", health.ProvidersCheck(a.engine), true)
	if a.cache != nil {
		a.health.RegisterCheck("shared_cache", health.SharedCacheCheck(a.cache), false)
	}

	a.server = server.NewServer(cfg.Server, a.routes(), logger)
	return a, nil
}

func (a *app) routes() server.Routes {
	routes := server.Routes{
		Chat:      handlers.NewChatHandler(a.orch, a.cfg.Server.MaxBodyBytes),
		Liveness:  a.health.LivenessHandler(),
		Readiness: a.health.ReadinessHandler(),
		Providers: health.ProvidersHandler(a.engine),
		Version:   health.VersionHandler(Version, GitCommit, BuildDate),
	}
	if a.cache != nil {
		routes.Cache = handlers.NewCacheHandler(a.cache)
	}
	if a.cfg.Telemetry.Metrics.Enabled {
		routes.Metrics = a.collector.Handler()
		routes.MetricsPath = a.cfg.Telemetry.Metrics.Path
	}
	return routes
}

// start launches the background components. The HTTP server is started
// separately by the run command.
func (a *app) start(ctx context.Context) error {
	if a.janitor != nil {
		if err := a.janitor.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// close releases every component in reverse construction order.
func (a *app) close() error {
	var errs []error
	if a.janitor != nil {
		a.janitor.Stop()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.providers != nil {
		if err := a.providers.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close providers: %w", err))
		}
	}
	return errors.Join(errs...)
}

// orchestratorConfig derives the orchestrator settings from cfg. Only
// providers that made it into the engine get attempt overrides.
func (a *app) orchestratorConfig(cfg *config.Config) orchestrator.Config {
	return orchestrator.Config{
		RequestDeadline: cfg.Orchestrator.RequestDeadline,
		AttemptTimeout:  cfg.Orchestrator.AttemptTimeout,
		Retry: orchestrator.RetryPolicy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
			Multiplier:     cfg.Retry.Multiplier,
			Jitter:         cfg.Retry.Jitter,
		},
		ProviderAttempts: providerfactory.ProviderAttempts(loadedProviders(cfg.Providers, a.engine.ProviderIDs())),
		CacheEnabled:     cfg.Cache.Enabled && a.cache != nil,
	}
}

func newEngine(cfg *config.Config, provs map[string]config.ProviderConfig, collector *metrics.Collector, logger *slog.Logger) (*routing.Engine, error) {
	kind, err := strategies.ParseKind(cfg.Routing.Strategy)
	if err != nil {
		return nil, err
	}

	return routing.NewEngine(providerfactory.Descriptors(provs), routing.Config{
		Strategy:      kind,
		LatencyWindow: cfg.Routing.LatencyWindow,
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.Routing.CircuitBreaker.FailureThreshold,
			OpenDuration:     cfg.Routing.CircuitBreaker.OpenDuration,
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			collector.BreakerStateChanged(name, from, to)
			level := slog.LevelInfo
			if to == circuitbreaker.StateOpen {
				level = slog.LevelWarn
			}
			logger.Log(context.Background(), level, "circuit breaker state changed",
				"provider", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

func newCache(cfg config.CacheConfig, observer cache.Observer) (*cache.Manager, error) {
	fast, err := cache.NewFastTier(cfg.Fast.Capacity, cfg.Fast.Shards)
	if err != nil {
		return nil, fmt.Errorf("create fast cache tier: %w", err)
	}

	shared, err := newSharedTier(cfg.Shared)
	if err != nil {
		return nil, err
	}

	return cache.NewManager(fast, shared, cache.Options{
		DefaultTTL:   cfg.DefaultTTL,
		MaxTTL:       cfg.MaxTTL,
		OpTimeout:    cfg.Shared.OpTimeout,
		Cooldown:     cfg.Shared.Cooldown,
		WriteWorkers: cfg.Shared.WriteWorkers,
		WriteQueue:   cfg.Shared.WriteQueue,
		Observer:     observer,
	}), nil
}

// newSharedTier returns nil for the "none" backend.
func newSharedTier(cfg config.SharedCacheConfig) (cache.SharedTier, error) {
	switch cfg.Backend {
	case "redis":
		tier, err := cache.NewRedisTier(cfg.Redis.URL, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("create redis cache tier: %w", err)
		}
		return tier, nil
	case "sqlite":
		tier, err := cache.NewSQLiteTier(cfg.SQLite.Path, cfg.SQLite.BusyTimeout)
		if err != nil {
			return nil, fmt.Errorf("create sqlite cache tier: %w", err)
		}
		return tier, nil
	default:
		return nil, nil
	}
}

// loadedProviders filters cfgs down to the given ids.
func loadedProviders(cfgs map[string]config.ProviderConfig, ids []string) map[string]config.ProviderConfig {
	out := make(map[string]config.ProviderConfig, len(ids))
	for _, id := range ids {
		if pc, ok := cfgs[id]; ok {
			out[id] = pc
		}
	}
	return out
}

// sortedKeys returns the provider ids of cfgs in order.
func sortedKeys(cfgs map[string]config.ProviderConfig) []string {
	keys := make([]string, 0, len(cfgs))
	for k := range cfgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
