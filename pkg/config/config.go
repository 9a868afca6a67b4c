package config

import "time"

// Config is the root configuration structure for the Aegis safety service.
type Config struct {
	// Server contains HTTP API server configuration.
	Server ServerConfig `yaml:"server"`

	// Safety contains the engine's detector selection and policy.
	Safety SafetyConfig `yaml:"safety"`

	// Patterns selects the pattern pack and hot reload behavior.
	Patterns PatternsConfig `yaml:"patterns"`

	// Audit contains configuration for persisting check records.
	Audit AuditConfig `yaml:"audit"`

	// MCP contains configuration for the Model Context Protocol server.
	MCP MCPConfig `yaml:"mcp"`

	// Telemetry contains configuration for logging, metrics, tracing and
	// health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8420"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds the handling of a single API request.
	// Default: 10s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 2097152 (2MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// Auth guards the /v1 routes with API keys.
	Auth AuthConfig `yaml:"auth"`

	// RateLimit throttles /v1 requests per client.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig contains API key authentication settings. Health, readiness
// and metrics endpoints are never authenticated.
type AuthConfig struct {
	// Enabled requires a valid key on every /v1 request.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Header is checked for a raw key. "Authorization: Bearer <key>" is
	// always accepted as well.
	// Default: "X-API-Key"
	Header string `yaml:"header"`

	// Keys lists the accepted keys.
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeyConfig names one API key. Name identifies the client in logs,
// audit records and rate limiting; the key itself is never logged.
type APIKeyConfig struct {
	Name     string `yaml:"name"`
	Key      string `yaml:"key"`
	Disabled bool   `yaml:"disabled"`
}

// RateLimitConfig contains per-client request throttling. Clients are
// identified by API key name when auth is enabled, otherwise by remote IP.
type RateLimitConfig struct {
	// Enabled turns throttling on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained rate per client. 0 disables it.
	// Default: 10
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests a client may make at once.
	// Default: 20
	Burst int `yaml:"burst"`

	// RequestsPerMinute caps each client per minute. 0 disables it.
	// Default: 0
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// MaxConcurrent caps in-flight /v1 requests across all clients.
	// 0 disables it.
	// Default: 64
	MaxConcurrent int `yaml:"max_concurrent"`

	// IdleTTL is how long an idle client's state is kept.
	// Default: 10m
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are sent.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists allowed origins. ["*"] allows any origin.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists allowed methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists allowed request headers.
	// Default: ["Content-Type", "X-Request-ID", "Authorization", "X-API-Key"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// SafetyConfig contains the default check options and the pass/block policy.
type SafetyConfig struct {
	// Detectors selects the detectors that run when a request does not
	// say otherwise.
	Detectors DetectorsConfig `yaml:"detectors"`

	// AutoSanitize produces sanitized content by default.
	// Default: false
	AutoSanitize bool `yaml:"auto_sanitize"`

	// PassThreshold is the minimum score for content to pass.
	// Default: 50
	PassThreshold int `yaml:"pass_threshold"`

	// BlockOnCritical blocks content with any critical issue.
	// Default: true
	BlockOnCritical bool `yaml:"block_on_critical"`

	// MaxInputLength bounds the bytes analyzed per check. Longer content is
	// truncated and flagged. -1 disables the bound.
	// Default: 100000
	MaxInputLength int `yaml:"max_input_length"`

	// Parallel runs detectors concurrently.
	// Default: true
	Parallel bool `yaml:"parallel"`
}

// DetectorsConfig enables individual detectors.
type DetectorsConfig struct {
	// Default: true
	Toxicity bool `yaml:"toxicity"`
	// Default: true
	PII bool `yaml:"pii"`
	// Default: true
	Injection bool `yaml:"injection"`
	// Default: true
	Bias bool `yaml:"bias"`
	// Default: true
	Security bool `yaml:"security"`
}

// PatternsConfig selects where detection patterns come from.
type PatternsConfig struct {
	// File is a pattern pack file or a directory of pack files. Empty uses
	// the built-in patterns only.
	// Default: ""
	File string `yaml:"file"`

	// Watch reloads the pack when it changes on disk.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period before a reload.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`
}

// AuditConfig contains configuration for the check audit log.
type AuditConfig struct {
	// Enabled controls whether check records are persisted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains asynchronous recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains the pruning policy.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains query limits.
	Query QueryConfig `yaml:"query"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains audit recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the record channel.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains the audit pruning policy.
type RetentionConfig struct {
	// Days is how long records are kept. 0 keeps them forever.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a standard cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords caps the number of stored records. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// QueryConfig contains audit query limits.
type QueryConfig struct {
	// DefaultLimit applies when a query sets no limit.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps any query limit.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`
}

// MCPConfig contains Model Context Protocol server configuration.
type MCPConfig struct {
	// Transport selects how the MCP server is reached.
	// Options: "stdio", "http"
	// Default: "stdio"
	Transport string `yaml:"transport"`

	// HTTPAddress is the listen address for the http transport.
	// Default: "127.0.0.1:8421"
	HTTPAddress string `yaml:"http_address"`

	// HTTPPath is the endpoint path for the http transport.
	// Default: "/mcp"
	HTTPPath string `yaml:"http_path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks personal data and secrets in log attributes using
	// the same PII patterns as the safety engine.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns adds custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom log redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "aegis"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "safety"
	Subsystem string `yaml:"subsystem"`

	// CheckDurationBuckets are histogram buckets for check duration (seconds).
	// Default: [0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25]
	CheckDurationBuckets []float64 `yaml:"check_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample.
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "aegis"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the collector connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the version information path.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout bounds each component check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
