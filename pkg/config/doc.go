// Package config provides configuration management for Mercator Relay.
//
// Configuration is loaded from a YAML file, completed with defaults,
// optionally overridden from the environment and validated as a whole.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("relay.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("relay.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention RELAY_SECTION_FIELD:
//
//   - RELAY_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - RELAY_PROVIDERS_OPENAI_API_KEY overrides providers.openai.api_key
//   - RELAY_ROUTING_STRATEGY overrides routing.strategy
//   - RELAY_CACHE_SHARED_REDIS_URL overrides cache.shared.redis.url
//
// Provider overrides only apply to providers declared in the file.
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast, reporting every invalid field)
//
// # Reloading
//
// Watcher observes the file with fsnotify and hands every successfully
// reloaded configuration to a callback. Callers decide which fields can be
// applied to a running process.
package config
