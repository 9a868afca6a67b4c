package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
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

// Validate validates the entire configuration. All field errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateSafety(&cfg.Safety)...)
	errs = append(errs, validatePatterns(&cfg.Patterns)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateMCP(&cfg.MCP)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateAddress(field, addr string) []FieldError {
	if addr == "" {
		return []FieldError{{Field: field, Message: "field is required"}}
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid address %q: expected host:port", addr)}}
	}
	return nil
}

func validatePath(field, path string) []FieldError {
	if !strings.HasPrefix(path, "/") {
		return []FieldError{{Field: field, Message: fmt.Sprintf("path %q must start with /", path)}}
	}
	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	errs := validateAddress("server.listen_address", cfg.ListenAddress)

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "must be positive"})
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, FieldError{Field: "server.request_timeout", Message: "must be positive"})
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must be positive"})
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "server.cors.max_age", Message: "must not be negative"})
	}
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	return errs
}

func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError

	names := make(map[string]bool)
	keys := make(map[string]bool)
	active := 0
	for i, k := range cfg.Keys {
		field := fmt.Sprintf("server.auth.keys[%d]", i)
		switch {
		case k.Name == "":
			errs = append(errs, FieldError{Field: field + ".name", Message: "is required"})
		case names[k.Name]:
			errs = append(errs, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate key name %q", k.Name)})
		}
		switch {
		case k.Key == "":
			errs = append(errs, FieldError{Field: field + ".key", Message: "is required"})
		case keys[k.Key]:
			errs = append(errs, FieldError{Field: field + ".key", Message: "duplicate key"})
		}
		names[k.Name] = true
		keys[k.Key] = true
		if !k.Disabled {
			active++
		}
	}
	if cfg.Enabled && active == 0 {
		errs = append(errs, FieldError{Field: "server.auth.keys", Message: "auth is enabled but no key is active"})
	}
	return errs
}

func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError

	if cfg.RequestsPerSecond < 0 {
		errs = append(errs, FieldError{Field: "server.rate_limit.requests_per_second", Message: "must not be negative"})
	}
	if cfg.RequestsPerMinute < 0 {
		errs = append(errs, FieldError{Field: "server.rate_limit.requests_per_minute", Message: "must not be negative"})
	}
	if cfg.RequestsPerSecond > 0 && cfg.Burst < 1 {
		errs = append(errs, FieldError{Field: "server.rate_limit.burst", Message: "must be at least 1"})
	}
	if cfg.MaxConcurrent < 0 {
		errs = append(errs, FieldError{Field: "server.rate_limit.max_concurrent", Message: "must not be negative"})
	}
	if cfg.IdleTTL < 0 {
		errs = append(errs, FieldError{Field: "server.rate_limit.idle_ttl", Message: "must not be negative"})
	}
	return errs
}

// validateSafety validates the engine policy.
func validateSafety(cfg *SafetyConfig) []FieldError {
	var errs []FieldError

	if cfg.PassThreshold < 0 || cfg.PassThreshold > 100 {
		errs = append(errs, FieldError{
			Field:   "safety.pass_threshold",
			Message: fmt.Sprintf("must be between 0 and 100, got %d", cfg.PassThreshold),
		})
	}
	if cfg.MaxInputLength < -1 || cfg.MaxInputLength == 0 {
		errs = append(errs, FieldError{
			Field:   "safety.max_input_length",
			Message: "must be positive, or -1 for no limit",
		})
	}
	return errs
}

// validatePatterns validates pattern pack settings.
func validatePatterns(cfg *PatternsConfig) []FieldError {
	var errs []FieldError

	if cfg.Watch && cfg.File == "" {
		errs = append(errs, FieldError{Field: "patterns.watch", Message: "watch requires patterns.file"})
	}
	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{Field: "patterns.debounce", Message: "must not be negative"})
	}
	return errs
}

// validateAudit validates audit configuration.
func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite":
		if cfg.Enabled && cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "audit.sqlite.path", Message: "field is required for sqlite backend"})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{Field: "audit.sqlite.max_idle_conns", Message: "must not exceed max_open_conns"})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("unsupported backend %q (must be sqlite or memory)", cfg.Backend),
		})
	}

	if cfg.Recorder.AsyncBuffer < 1 {
		errs = append(errs, FieldError{Field: "audit.recorder.async_buffer", Message: "must be at least 1"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.days", Message: "must not be negative"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.max_records", Message: "must not be negative"})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	if cfg.Query.DefaultLimit > cfg.Query.MaxLimit {
		errs = append(errs, FieldError{Field: "audit.query.default_limit", Message: "must not exceed max_limit"})
	}
	return errs
}

// validateMCP validates MCP server configuration.
func validateMCP(cfg *MCPConfig) []FieldError {
	switch cfg.Transport {
	case "stdio":
		return nil
	case "http":
		errs := validateAddress("mcp.http_address", cfg.HTTPAddress)
		return append(errs, validatePath("mcp.http_path", cfg.HTTPPath)...)
	default:
		return []FieldError{{
			Field:   "mcp.transport",
			Message: fmt.Sprintf("unsupported transport %q (must be stdio or http)", cfg.Transport),
		}}
	}
}

// validateTelemetry validates logging, metrics, tracing and health settings.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q (must be json or text)", cfg.Logging.Format),
		})
	}
	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "field is required",
			})
		}
	}

	if cfg.Metrics.Enabled {
		errs = append(errs, validatePath("telemetry.metrics.path", cfg.Metrics.Path)...)
		for i := 1; i < len(cfg.Metrics.CheckDurationBuckets); i++ {
			if cfg.Metrics.CheckDurationBuckets[i] <= cfg.Metrics.CheckDurationBuckets[i-1] {
				errs = append(errs, FieldError{
					Field:   "telemetry.metrics.check_duration_buckets",
					Message: "buckets must be strictly increasing",
				})
				break
			}
		}
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be always, never or ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0 and 1"})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "field is required when tracing is enabled"})
		}
	}

	if cfg.Health.Enabled {
		errs = append(errs, validatePath("telemetry.health.liveness_path", cfg.Health.LivenessPath)...)
		errs = append(errs, validatePath("telemetry.health.readiness_path", cfg.Health.ReadinessPath)...)
		errs = append(errs, validatePath("telemetry.health.version_path", cfg.Health.VersionPath)...)
	}
	return errs
}
