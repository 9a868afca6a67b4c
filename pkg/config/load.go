package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AEGIS_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Defaults, then zero-valued fields are
// defaulted and the result is validated. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention AEGIS_SECTION_FIELD (e.g., AEGIS_SERVER_LISTEN_ADDRESS) and
// always take precedence over the file.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
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

func envInt64(name string, dst *int64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envList(name string, dst *[]string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}
}

// envAPIKeys parses "name=key" pairs separated by commas. Keys given this
// way replace any configured in the file.
func envAPIKeys(name string, dst *[]APIKeyConfig) {
	var pairs []string
	envList(name, &pairs)
	if len(pairs) == 0 {
		return
	}
	keys := make([]APIKeyConfig, 0, len(pairs))
	for _, pair := range pairs {
		n, k, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		keys = append(keys, APIKeyConfig{Name: strings.TrimSpace(n), Key: strings.TrimSpace(k)})
	}
	*dst = keys
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envDuration("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	envInt64("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)
	envBool("SERVER_CORS_ENABLED", &cfg.Server.CORS.Enabled)
	envList("SERVER_CORS_ALLOWED_ORIGINS", &cfg.Server.CORS.AllowedOrigins)
	envBool("SERVER_AUTH_ENABLED", &cfg.Server.Auth.Enabled)
	envAPIKeys("SERVER_AUTH_KEYS", &cfg.Server.Auth.Keys)
	envBool("SERVER_RATE_LIMIT_ENABLED", &cfg.Server.RateLimit.Enabled)
	envFloat("SERVER_RATE_LIMIT_REQUESTS_PER_SECOND", &cfg.Server.RateLimit.RequestsPerSecond)
	envInt("SERVER_RATE_LIMIT_BURST", &cfg.Server.RateLimit.Burst)
	envInt("SERVER_RATE_LIMIT_REQUESTS_PER_MINUTE", &cfg.Server.RateLimit.RequestsPerMinute)
	envInt("SERVER_RATE_LIMIT_MAX_CONCURRENT", &cfg.Server.RateLimit.MaxConcurrent)

	// Safety overrides
	envBool("SAFETY_DETECTORS_TOXICITY", &cfg.Safety.Detectors.Toxicity)
	envBool("SAFETY_DETECTORS_PII", &cfg.Safety.Detectors.PII)
	envBool("SAFETY_DETECTORS_INJECTION", &cfg.Safety.Detectors.Injection)
	envBool("SAFETY_DETECTORS_BIAS", &cfg.Safety.Detectors.Bias)
	envBool("SAFETY_DETECTORS_SECURITY", &cfg.Safety.Detectors.Security)
	envBool("SAFETY_AUTO_SANITIZE", &cfg.Safety.AutoSanitize)
	envInt("SAFETY_PASS_THRESHOLD", &cfg.Safety.PassThreshold)
	envBool("SAFETY_BLOCK_ON_CRITICAL", &cfg.Safety.BlockOnCritical)
	envInt("SAFETY_MAX_INPUT_LENGTH", &cfg.Safety.MaxInputLength)
	envBool("SAFETY_PARALLEL", &cfg.Safety.Parallel)

	// Patterns overrides
	envString("PATTERNS_FILE", &cfg.Patterns.File)
	envBool("PATTERNS_WATCH", &cfg.Patterns.Watch)
	envDuration("PATTERNS_DEBOUNCE", &cfg.Patterns.Debounce)

	// Audit overrides
	envBool("AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString("AUDIT_BACKEND", &cfg.Audit.Backend)
	envString("AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envInt("AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	envString("AUDIT_RETENTION_PRUNE_SCHEDULE", &cfg.Audit.Retention.PruneSchedule)
	envInt64("AUDIT_RETENTION_MAX_RECORDS", &cfg.Audit.Retention.MaxRecords)

	// MCP overrides
	envString("MCP_TRANSPORT", &cfg.MCP.Transport)
	envString("MCP_HTTP_ADDRESS", &cfg.MCP.HTTPAddress)
	envString("MCP_HTTP_PATH", &cfg.MCP.HTTPPath)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
}
