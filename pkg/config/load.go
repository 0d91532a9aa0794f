package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix shared by every environment override.
const EnvPrefix = "RELAY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of the default configuration and fills any
// remaining zero values. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention RELAY_SECTION_FIELD (e.g., RELAY_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)

	// Provider overrides. Only providers declared in the file are touched;
	// the environment cannot introduce a provider on its own.
	for name := range cfg.Providers {
		applyProviderEnvOverrides(cfg, name)
	}

	// Routing overrides
	envString("ROUTING_STRATEGY", &cfg.Routing.Strategy)
	envInt("ROUTING_CIRCUIT_BREAKER_FAILURE_THRESHOLD", &cfg.Routing.CircuitBreaker.FailureThreshold)
	envDuration("ROUTING_CIRCUIT_BREAKER_OPEN_DURATION", &cfg.Routing.CircuitBreaker.OpenDuration)

	// Retry overrides
	envInt("RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts)
	envDuration("RETRY_INITIAL_BACKOFF", &cfg.Retry.InitialBackoff)
	envDuration("RETRY_MAX_BACKOFF", &cfg.Retry.MaxBackoff)

	// Cache overrides
	envBool("CACHE_ENABLED", &cfg.Cache.Enabled)
	envDuration("CACHE_DEFAULT_TTL", &cfg.Cache.DefaultTTL)
	envInt("CACHE_FAST_CAPACITY", &cfg.Cache.Fast.Capacity)
	envString("CACHE_SHARED_BACKEND", &cfg.Cache.Shared.Backend)
	envString("CACHE_SHARED_REDIS_URL", &cfg.Cache.Shared.Redis.URL)
	envString("CACHE_SHARED_SQLITE_PATH", &cfg.Cache.Shared.SQLite.Path)

	// Orchestrator overrides
	envDuration("ORCHESTRATOR_REQUEST_DEADLINE", &cfg.Orchestrator.RequestDeadline)
	envDuration("ORCHESTRATOR_ATTEMPT_TIMEOUT", &cfg.Orchestrator.AttemptTimeout)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)

	// Secrets overrides
	envString("SECRETS_DIR", &cfg.Secrets.Dir)
}

// applyProviderEnvOverrides applies environment variable overrides for a specific provider.
// Provider environment variables follow the format RELAY_PROVIDERS_<NAME>_<FIELD>
// where NAME is the uppercase provider id with dashes replaced by underscores.
func applyProviderEnvOverrides(cfg *Config, providerName string) {
	provider := cfg.Providers[providerName]

	key := strings.ToUpper(strings.ReplaceAll(providerName, "-", "_"))
	prefix := "PROVIDERS_" + key + "_"

	envString(prefix+"BASE_URL", &provider.BaseURL)
	envString(prefix+"API_KEY", &provider.APIKey)
	envDuration(prefix+"TIMEOUT", &provider.Timeout)
	envInt(prefix+"PRIORITY", &provider.Priority)
	envInt(prefix+"MAX_ATTEMPTS", &provider.MaxAttempts)
	if val := os.Getenv(EnvPrefix + prefix + "COST_PER_TOKEN"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			provider.CostPerToken = f
		}
	}

	cfg.Providers[providerName] = provider
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}
