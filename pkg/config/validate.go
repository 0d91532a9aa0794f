package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Valid option sets.
var (
	validStrategies     = []string{"round-robin", "failover", "least-latency", "cost-optimized"}
	validProviderTypes  = []string{"openai", "anthropic", "generic"}
	validSharedBackends = []string{"none", "redis", "sqlite"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validLogFormats     = []string{"json", "text"}
)

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateRouting(&cfg.Routing)...)
	errs = append(errs, validateRetry(&cfg.Retry)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateOrchestrator(&cfg.Orchestrator)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 || cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be between 0 and 10MB",
		})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_body_bytes",
			Message: "max body bytes must be non-negative",
		})
	}

	return errs
}

// validateProviders validates every provider. Providers are visited in
// sorted order so the error list is stable.
func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	if len(providers) == 0 {
		errs = append(errs, FieldError{
			Field:   "providers",
			Message: "at least one provider must be configured",
		})
		return errs
	}

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		provider := providers[name]
		prefix := fmt.Sprintf("providers.%s", name)

		if provider.Type != "" && !contains(validProviderTypes, provider.Type) {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("invalid provider type %q: must be one of %s", provider.Type, strings.Join(validProviderTypes, ", ")),
			})
		}

		if provider.BaseURL != "" {
			if u, err := url.Parse(provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: fmt.Sprintf("invalid URL %q", provider.BaseURL),
				})
			}
		} else if provider.Type == "generic" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: "base URL is required for generic providers",
			})
		}

		if len(provider.Models) == 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".models",
				Message: "at least one model (or \"*\") must be declared",
			})
		}
		if provider.CostPerToken < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".cost_per_token",
				Message: "cost per token must be non-negative",
			})
		}
		if provider.DeclaredLatency < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".declared_latency",
				Message: "declared latency must be non-negative",
			})
		}
		if provider.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout must be positive",
			})
		}
		if provider.MaxAttempts < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_attempts",
				Message: "max attempts must be non-negative",
			})
		}
	}

	return errs
}

func validateRouting(cfg *RoutingConfig) []FieldError {
	var errs []FieldError

	if !contains(validStrategies, cfg.Strategy) {
		errs = append(errs, FieldError{
			Field:   "routing.strategy",
			Message: fmt.Sprintf("invalid strategy %q: must be one of %s", cfg.Strategy, strings.Join(validStrategies, ", ")),
		})
	}
	if cfg.LatencyWindow < 1 {
		errs = append(errs, FieldError{
			Field:   "routing.latency_window",
			Message: "latency window must be at least 1",
		})
	}
	if cfg.CircuitBreaker.FailureThreshold < 1 {
		errs = append(errs, FieldError{
			Field:   "routing.circuit_breaker.failure_threshold",
			Message: "failure threshold must be at least 1",
		})
	}
	if cfg.CircuitBreaker.OpenDuration <= 0 {
		errs = append(errs, FieldError{
			Field:   "routing.circuit_breaker.open_duration",
			Message: "open duration must be positive",
		})
	}

	return errs
}

func validateRetry(cfg *RetryConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxAttempts < 1 {
		errs = append(errs, FieldError{
			Field:   "retry.max_attempts",
			Message: "max attempts must be at least 1",
		})
	}
	if cfg.InitialBackoff < 0 {
		errs = append(errs, FieldError{
			Field:   "retry.initial_backoff",
			Message: "initial backoff must be non-negative",
		})
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		errs = append(errs, FieldError{
			Field:   "retry.max_backoff",
			Message: "max backoff must not be smaller than initial backoff",
		})
	}
	if cfg.Multiplier < 1 {
		errs = append(errs, FieldError{
			Field:   "retry.multiplier",
			Message: "multiplier must be at least 1.0",
		})
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		errs = append(errs, FieldError{
			Field:   "retry.jitter",
			Message: "jitter must be between 0.0 and 1.0",
		})
	}

	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	if cfg.DefaultTTL <= 0 {
		errs = append(errs, FieldError{
			Field:   "cache.default_ttl",
			Message: "default TTL must be positive",
		})
	}
	if cfg.MaxTTL < cfg.DefaultTTL {
		errs = append(errs, FieldError{
			Field:   "cache.max_ttl",
			Message: "max TTL must not be smaller than default TTL",
		})
	}
	if cfg.Fast.Capacity < 1 {
		errs = append(errs, FieldError{
			Field:   "cache.fast.capacity",
			Message: "capacity must be at least 1",
		})
	}
	if cfg.Fast.Shards < 1 || cfg.Fast.Shards > cfg.Fast.Capacity {
		errs = append(errs, FieldError{
			Field:   "cache.fast.shards",
			Message: "shards must be between 1 and the fast tier capacity",
		})
	}

	shared := cfg.Shared
	if !contains(validSharedBackends, shared.Backend) {
		errs = append(errs, FieldError{
			Field:   "cache.shared.backend",
			Message: fmt.Sprintf("invalid backend %q: must be one of %s", shared.Backend, strings.Join(validSharedBackends, ", ")),
		})
	}
	if shared.Backend == "redis" && shared.Redis.URL == "" {
		errs = append(errs, FieldError{
			Field:   "cache.shared.redis.url",
			Message: "redis URL is required when backend is redis",
		})
	}
	if shared.Backend == "sqlite" && shared.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "cache.shared.sqlite.path",
			Message: "sqlite path is required when backend is sqlite",
		})
	}
	if shared.OpTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "cache.shared.op_timeout",
			Message: "operation timeout must be positive",
		})
	}
	if shared.WriteWorkers < 1 {
		errs = append(errs, FieldError{
			Field:   "cache.shared.write_workers",
			Message: "write workers must be at least 1",
		})
	}
	if shared.WriteQueue < 1 {
		errs = append(errs, FieldError{
			Field:   "cache.shared.write_queue",
			Message: "write queue must be at least 1",
		})
	}

	return errs
}

func validateOrchestrator(cfg *OrchestratorConfig) []FieldError {
	var errs []FieldError

	if cfg.RequestDeadline <= 0 {
		errs = append(errs, FieldError{
			Field:   "orchestrator.request_deadline",
			Message: "request deadline must be positive",
		})
	}
	if cfg.AttemptTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "orchestrator.attempt_timeout",
			Message: "attempt timeout must be positive",
		})
	} else if cfg.AttemptTimeout > cfg.RequestDeadline {
		errs = append(errs, FieldError{
			Field:   "orchestrator.attempt_timeout",
			Message: "attempt timeout must not exceed the request deadline",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if !contains(validLogLevels, cfg.Logging.Level) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}
	if !contains(validLogFormats, cfg.Logging.Format) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	return errs
}

func contains(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}
