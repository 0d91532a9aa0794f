// Package logging configures the process-wide slog logger.
//
// # Overview
//
// The relay logs through log/slog everywhere. This package builds the
// handler chain from configuration:
//   - JSON or text output at the configured level
//   - secret redaction (API keys, bearer tokens, sensitive attribute keys)
//   - request-scoped fields taken from the context (request_id, provider, model)
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "request served", "api_key", key) // request_id added, key masked
//
// # Redaction
//
// Values under sensitive keys are masked to a four character prefix:
//
//   - api_key=sk-abc123xyz -> sk-a***
//   - authorization=Bearer abc -> Bear***
//
// String values under any key are scanned for provider keys and bearer
// tokens, so an upstream error message that echoes a key is masked as well.
package logging
