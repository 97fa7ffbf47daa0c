// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Gemini     GeminiConfig
	Analysis   AnalysisConfig
	Parse      ParseConfig
	Upload     UploadConfig
	Session    SessionConfig
	Capability CapabilityConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
	Tracing    TracingConfig
	Metrics    MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// GeminiConfig holds settings for the hosted language model.
type GeminiConfig struct {
	// APIKey is the Gemini API credential (required)
	// Supports both API_KEY and GEMINI_API_KEY env vars
	APIKey string `env:"API_KEY" envAlt:"GEMINI_API_KEY" required:"true"`

	// Model is the model identifier (default: gemini-2.5-pro)
	Model string `env:"GEMINI_MODEL" default:"gemini-2.5-pro"`

	// RequestTimeout bounds a single generate call (default: 120s)
	RequestTimeout time.Duration `env:"GEMINI_REQUEST_TIMEOUT" default:"120s"`

	// BreakerFailures is the consecutive failure count that opens the circuit (default: 5)
	BreakerFailures int `env:"GEMINI_BREAKER_FAILURES" default:"5"`

	// BreakerCooldown is how long the circuit stays open (default: 30s)
	BreakerCooldown time.Duration `env:"GEMINI_BREAKER_COOLDOWN" default:"30s"`
}

// AnalysisConfig holds analyze pipeline settings.
type AnalysisConfig struct {
	// Timeout bounds one full analyze run: parse plus model call (default: 5m)
	Timeout time.Duration `env:"ANALYSIS_TIMEOUT" default:"5m"`

	// MaxRetries is how many times a transient model failure is retried (default: 2)
	MaxRetries int `env:"ANALYSIS_MAX_RETRIES" default:"2"`

	// RetryBaseDelay is the first backoff delay, doubled per attempt (default: 1s)
	RetryBaseDelay time.Duration `env:"ANALYSIS_RETRY_BASE_DELAY" default:"1s"`

	// MaxConcurrent is the maximum number of analyses in flight process-wide (default: 4)
	MaxConcurrent int `env:"ANALYSIS_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long an analysis waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"ANALYSIS_MAX_WAIT_TIME" default:"30s"`

	// Language is the language the model is asked to answer in (default: English)
	Language string `env:"ANALYSIS_LANGUAGE" default:"English"`
}

// ParseConfig holds delimited-text parsing settings.
type ParseConfig struct {
	// Encoding is the IANA name of the input text encoding (default: ISO-8859-1)
	Encoding string `env:"PARSE_ENCODING" default:"ISO-8859-1"`

	// Delimiter is the field separator, or "auto" to guess per file (default: auto)
	Delimiter string `env:"PARSE_DELIMITER" default:"auto"`
}

// UploadConfig holds file selection limits.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxFiles is the maximum number of files in one selection (default: 20)
	MaxFiles int `env:"UPLOAD_MAX_FILES" default:"20"`
}

// SessionConfig holds in-memory session lifecycle settings.
type SessionConfig struct {
	// MaxIdle is how long an untouched session is kept (default: 2h)
	MaxIdle time.Duration `env:"SESSION_MAX_IDLE" default:"2h"`

	// CleanupInterval is how often idle sessions are swept (default: 10m)
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" default:"10m"`

	// MaxSessions caps live sessions; 0 disables the cap (default: 10000)
	MaxSessions int `env:"SESSION_MAX_SESSIONS" default:"10000"`

	// CookieSecure marks the session cookie Secure (default: false)
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`
}

// CapabilityConfig holds readiness gate settings.
type CapabilityConfig struct {
	// LoadTimeout bounds loading of all capabilities at startup (default: 30s)
	LoadTimeout time.Duration `env:"CAPABILITY_LOAD_TIMEOUT" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	// Enabled exports spans to stdout (default: false)
	Enabled bool `env:"TRACING_ENABLED" default:"false"`
}

// MetricsConfig holds OpenTelemetry metric export settings.
type MetricsConfig struct {
	// Enabled exports analysis metrics to stdout (default: false)
	Enabled bool `env:"METRICS_ENABLED" default:"false"`

	// Interval is how often metrics are exported (default: 60s)
	Interval time.Duration `env:"METRICS_EXPORT_INTERVAL" default:"60s"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
