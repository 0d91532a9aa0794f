// Package secrets resolves ${secret:name} references in provider API keys.
//
// Secrets are looked up in the environment (RELAY_SECRET_<NAME>) and then,
// when configured, in a directory holding one owner-readable file per
// secret:
//
//	providers:
//	  openai:
//	    api_key: ${secret:openai-api-key}
//	secrets:
//	  dir: /var/run/secrets/relay
//
// References are resolved when the configuration is loaded and again on
// every reload.
package secrets
