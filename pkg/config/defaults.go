package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576  // 1MB
	DefaultMaxBodyBytes    = 10485760 // 10MB

	// Provider defaults
	DefaultProviderTimeout     = 60 * time.Second
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second

	// Routing defaults
	DefaultRoutingStrategy     = "round-robin"
	DefaultLatencyWindow       = 20
	DefaultBreakerThreshold    = 5
	DefaultBreakerOpenDuration = 30 * time.Second

	// Retry defaults
	DefaultRetryMaxAttempts    = 3
	DefaultRetryInitialBackoff = 100 * time.Millisecond
	DefaultRetryMaxBackoff     = 2 * time.Second
	DefaultRetryMultiplier     = 2.0
	DefaultRetryJitter         = 0.2

	// Cache defaults
	DefaultCacheEnabled       = true
	DefaultCacheTTL           = 5 * time.Minute
	DefaultCacheMaxTTL        = 24 * time.Hour
	DefaultJanitorSchedule    = "@every 1m"
	DefaultFastCapacity       = 10000
	DefaultFastShards         = 16
	DefaultSharedBackend      = "none"
	DefaultSharedOpTimeout    = 50 * time.Millisecond
	DefaultSharedCooldown     = time.Second
	DefaultSharedWriteWorkers = 4
	DefaultSharedWriteQueue   = 256
	DefaultRedisKeyPrefix     = "relay:cache:"
	DefaultSQLitePath         = "data/cache.db"
	DefaultSQLiteBusyTimeout  = 5 * time.Second

	// Orchestrator defaults
	DefaultRequestDeadline = 60 * time.Second
	DefaultAttemptTimeout  = 20 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedact      = true
	DefaultMetricsEnabled     = true
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "mercator"
	DefaultMetricsSubsystem   = "relay"
	DefaultMetricsCardinality = 10000

	// Secrets defaults
	DefaultSecretsEnvPrefix = "RELAY_SECRET_"
)

// DefaultRequestDurationBuckets spans local cache hits (milliseconds) through
// slow upstream completions (tens of seconds).
var DefaultRequestDurationBuckets = []float64{0.005, 0.05, 0.25, 1.0, 2.5, 5.0, 10.0, 30.0}

// Default returns a configuration with every boolean switch at its default.
// LoadConfig decodes YAML on top of it so that an explicit "false" in the
// file survives, then ApplyDefaults fills the remaining zero values.
func Default() *Config {
	cfg := &Config{
		Cache: CacheConfig{
			Enabled: DefaultCacheEnabled,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				RedactSecrets: DefaultLoggingRedact,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// Provider defaults - applied to each provider
	for name, provider := range cfg.Providers {
		if provider.Timeout == 0 {
			provider.Timeout = DefaultProviderTimeout
		}
		if provider.MaxIdleConns == 0 {
			provider.MaxIdleConns = DefaultMaxIdleConns
		}
		if provider.MaxIdleConnsPerHost == 0 {
			provider.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
		}
		if provider.IdleConnTimeout == 0 {
			provider.IdleConnTimeout = DefaultIdleConnTimeout
		}
		// Update the provider in the map
		cfg.Providers[name] = provider
	}

	// Routing defaults
	if cfg.Routing.Strategy == "" {
		cfg.Routing.Strategy = DefaultRoutingStrategy
	}
	if cfg.Routing.LatencyWindow == 0 {
		cfg.Routing.LatencyWindow = DefaultLatencyWindow
	}
	if cfg.Routing.CircuitBreaker.FailureThreshold == 0 {
		cfg.Routing.CircuitBreaker.FailureThreshold = DefaultBreakerThreshold
	}
	if cfg.Routing.CircuitBreaker.OpenDuration == 0 {
		cfg.Routing.CircuitBreaker.OpenDuration = DefaultBreakerOpenDuration
	}

	// Retry defaults
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if cfg.Retry.InitialBackoff == 0 {
		cfg.Retry.InitialBackoff = DefaultRetryInitialBackoff
	}
	if cfg.Retry.MaxBackoff == 0 {
		cfg.Retry.MaxBackoff = DefaultRetryMaxBackoff
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = DefaultRetryMultiplier
	}
	if cfg.Retry.Jitter == 0 {
		cfg.Retry.Jitter = DefaultRetryJitter
	}

	applyCacheDefaults(&cfg.Cache)

	// Orchestrator defaults
	if cfg.Orchestrator.RequestDeadline == 0 {
		cfg.Orchestrator.RequestDeadline = DefaultRequestDeadline
	}
	if cfg.Orchestrator.AttemptTimeout == 0 {
		cfg.Orchestrator.AttemptTimeout = DefaultAttemptTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}
	if cfg.Telemetry.Metrics.MaxCardinality == 0 {
		cfg.Telemetry.Metrics.MaxCardinality = DefaultMetricsCardinality
	}

	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
}

func applyCacheDefaults(cache *CacheConfig) {
	if cache.DefaultTTL == 0 {
		cache.DefaultTTL = DefaultCacheTTL
	}
	if cache.MaxTTL == 0 {
		cache.MaxTTL = DefaultCacheMaxTTL
	}
	if cache.JanitorSchedule == "" {
		cache.JanitorSchedule = DefaultJanitorSchedule
	}
	if cache.Fast.Capacity == 0 {
		cache.Fast.Capacity = DefaultFastCapacity
	}
	if cache.Fast.Shards == 0 {
		cache.Fast.Shards = DefaultFastShards
	}

	shared := &cache.Shared
	if shared.Backend == "" {
		shared.Backend = DefaultSharedBackend
	}
	if shared.OpTimeout == 0 {
		shared.OpTimeout = DefaultSharedOpTimeout
	}
	if shared.Cooldown == 0 {
		shared.Cooldown = DefaultSharedCooldown
	}
	if shared.WriteWorkers == 0 {
		shared.WriteWorkers = DefaultSharedWriteWorkers
	}
	if shared.WriteQueue == 0 {
		shared.WriteQueue = DefaultSharedWriteQueue
	}
	if shared.Redis.KeyPrefix == "" {
		shared.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if shared.SQLite.Path == "" {
		shared.SQLite.Path = DefaultSQLitePath
	}
	if shared.SQLite.BusyTimeout == 0 {
		shared.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
}
