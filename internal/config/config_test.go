package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Set only required env var
	t.Setenv("API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify defaults
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Errorf("Gemini.Model = %q, want %q", cfg.Gemini.Model, "gemini-2.5-pro")
	}
	if cfg.Parse.Encoding != "ISO-8859-1" {
		t.Errorf("Parse.Encoding = %q, want %q", cfg.Parse.Encoding, "ISO-8859-1")
	}
	if cfg.Parse.Delimiter != "auto" {
		t.Errorf("Parse.Delimiter = %q, want %q", cfg.Parse.Delimiter, "auto")
	}
	if cfg.Analysis.MaxRetries != 2 {
		t.Errorf("Analysis.MaxRetries = %d, want %d", cfg.Analysis.MaxRetries, 2)
	}
	if cfg.Upload.MaxFileSize != 104857600 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 104857600)
	}
	if cfg.Capability.LoadTimeout != 30*time.Second {
		t.Errorf("Capability.LoadTimeout = %v, want %v", cfg.Capability.LoadTimeout, 30*time.Second)
	}
	if cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 100)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PARSE_ENCODING", "UTF-8")
	t.Setenv("ANALYSIS_MAX_RETRIES", "0")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Parse.Encoding != "UTF-8" {
		t.Errorf("Parse.Encoding = %q, want %q", cfg.Parse.Encoding, "UTF-8")
	}
	if cfg.Analysis.MaxRetries != 0 {
		t.Errorf("Analysis.MaxRetries = %d, want %d", cfg.Analysis.MaxRetries, 0)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	// GEMINI_API_KEY works as fallback
	t.Setenv("API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "alt-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Gemini.APIKey != "alt-key" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, "alt-key")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing API_KEY")
	}
	if !strings.Contains(err.Error(), "API_KEY") {
		t.Errorf("error should mention API_KEY: %v", err)
	}
}

func TestLoad_Duration(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("SERVER_READ_TIMEOUT", "45s")
	t.Setenv("ANALYSIS_RETRY_BASE_DELAY", "1m30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Analysis.RetryBaseDelay != 90*time.Second {
		t.Errorf("Analysis.RetryBaseDelay = %v, want %v", cfg.Analysis.RetryBaseDelay, 90*time.Second)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("ANALYSIS_TIMEOUT", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "ANALYSIS_TIMEOUT") {
		t.Errorf("error should mention ANALYSIS_TIMEOUT: %v", err)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12 , 192.168.0.0/16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if len(cfg.Security.TrustedProxies) != len(expected) {
		t.Fatalf("TrustedProxies length = %d, want %d", len(cfg.Security.TrustedProxies), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.TrustedProxies[i] != v {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Security.TrustedProxies[i], v)
		}
	}
}

// validConfig returns a config that passes Validate.
func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Gemini:     GeminiConfig{APIKey: "k", Model: "gemini-2.5-pro", RequestTimeout: time.Minute, BreakerFailures: 5},
		Analysis:   AnalysisConfig{Timeout: time.Minute, MaxRetries: 2, RetryBaseDelay: time.Second, MaxConcurrent: 1, MaxWaitTime: time.Second},
		Parse:      ParseConfig{Encoding: "ISO-8859-1", Delimiter: "auto"},
		Upload:     UploadConfig{MaxFileSize: 1, MaxFiles: 1},
		Session:    SessionConfig{MaxIdle: time.Hour, CleanupInterval: time.Minute},
		Capability: CapabilityConfig{LoadTimeout: time.Second},
		Rate:       RateLimitConfig{Enabled: true, RequestsPerMinute: 100},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		Metrics:    MetricsConfig{Enabled: true, Interval: time.Minute},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		wantErr  bool
		mentions string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:     "invalid port",
			mutate:   func(c *Config) { c.Server.Port = 99999 },
			wantErr:  true,
			mentions: "SERVER_PORT",
		},
		{
			name:     "blank api key",
			mutate:   func(c *Config) { c.Gemini.APIKey = "   " },
			wantErr:  true,
			mentions: "API_KEY",
		},
		{
			name:     "negative retries",
			mutate:   func(c *Config) { c.Analysis.MaxRetries = -1 },
			wantErr:  true,
			mentions: "ANALYSIS_MAX_RETRIES",
		},
		{
			name:     "multi-character delimiter",
			mutate:   func(c *Config) { c.Parse.Delimiter = ";;" },
			wantErr:  true,
			mentions: "PARSE_DELIMITER",
		},
		{
			name:   "escaped tab delimiter",
			mutate: func(c *Config) { c.Parse.Delimiter = `\t` },
		},
		{
			name:   "single character delimiter",
			mutate: func(c *Config) { c.Parse.Delimiter = ";" },
		},
		{
			name:     "invalid log level",
			mutate:   func(c *Config) { c.Logging.Level = "verbose" },
			wantErr:  true,
			mentions: "LOG_LEVEL",
		},
		{
			name:     "rate limit enabled without budget",
			mutate:   func(c *Config) { c.Rate.RequestsPerMinute = 0 },
			wantErr:  true,
			mentions: "RATE_LIMIT_REQUESTS_PER_MINUTE",
		},
		{
			name:     "negative session cap",
			mutate:   func(c *Config) { c.Session.MaxSessions = -1 },
			wantErr:  true,
			mentions: "SESSION_MAX_SESSIONS",
		},
		{
			name:     "metrics enabled without interval",
			mutate:   func(c *Config) { c.Metrics.Interval = 0 },
			wantErr:  true,
			mentions: "METRICS_EXPORT_INTERVAL",
		},
		{
			name: "metrics disabled without interval",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.Interval = 0
			},
		},
		{
			name: "rate limit disabled without budget",
			mutate: func(c *Config) {
				c.Rate.Enabled = false
				c.Rate.RequestsPerMinute = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.mentions) {
				t.Errorf("error should mention %s: %v", tt.mentions, err)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"localhost", 443, "localhost:443"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		got := cfg.Addr()
		if got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString_MasksAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Gemini.APIKey = "super-secret-key"

	str := cfg.String()
	if strings.Contains(str, "super-secret-key") {
		t.Error("String() should mask the API key")
	}
	if !strings.Contains(str, "MASKED") {
		t.Error("String() should contain MASKED placeholder")
	}
}
