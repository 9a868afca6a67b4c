// Package logging provides structured logging with PII redaction.
//
// # Overview
//
// The logging package wraps log/slog to provide:
//   - JSON, text and console output
//   - Redaction of PII and secrets using the PII pattern table
//   - Context fields (request_id, check_id, source, trace_id, span_id)
//
// # Usage
//
//	logger, err := logging.New(logging.OptionsFromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "check completed",
//	    "score", 60,
//	    "api_key", key, // masked
//	)
//
// # PII Redaction
//
// String attributes are rewritten with the same redaction tokens the
// sanitizer uses, for example
//
//	user@example.com   -> [EMAIL_REDACTED]
//	123-45-6789        -> [SSN_REDACTED]
//	password: hunter22 -> [PASSWORD_REDACTED]
//
// Attributes whose key names a secret (password, token, api_key, ...) are
// masked to their first four characters regardless of content.
package logging
