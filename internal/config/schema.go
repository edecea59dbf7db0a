// Package config handles YAML configuration loading, environment variable
// expansion and overlay, and structural validation for tgrelay.
package config

import (
	"strings"
	"time"
)

// Relay strategies selectable through relay.mode.
const (
	ModeTyped   = "typed"
	ModeForward = "forward"
)

// EnvProduction is the environment value that hides error detail from clients.
const EnvProduction = "production"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Environment mirrors NODE_ENV. "production" hides error detail in
	// client-facing responses; anything else exposes it.
	Environment string `yaml:"environment"`

	Server    ServerConfig    `yaml:"server"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Relay     RelayConfig     `yaml:"relay"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Probe     ProbeConfig     `yaml:"probe"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds the inbound HTTP listener configuration.
type ServerConfig struct {
	Bind         string        `yaml:"bind"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Drain makes shutdown wait up to ShutdownTimeout for in-flight
	// requests. When false the listener and open connections are closed
	// immediately.
	Drain           bool          `yaml:"drain"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	CORS CORSConfig `yaml:"cors"`
	Auth AuthConfig `yaml:"auth"`
}

// CORSConfig configures the cross-origin policy applied to every route.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AuthConfig configures optional authentication for relay and status routes.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// TelegramConfig holds the upstream Bot API settings.
type TelegramConfig struct {
	Token   string        `yaml:"token"`
	APIURL  string        `yaml:"api_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RelayConfig selects the relay strategy.
type RelayConfig struct {
	Mode   string `yaml:"mode"`
	Prefix string `yaml:"prefix"`
}

// LogConfig controls log level, format and the optional rotating file sink.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TelemetryConfig enables OTLP trace export when OTLPEndpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Insecure     bool   `yaml:"insecure"`
}

// ProbeConfig schedules the periodic upstream connectivity check.
// An empty Schedule disables it.
type ProbeConfig struct {
	Schedule string `yaml:"schedule"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// IsEnabled reports whether /metrics should be mounted. Defaults to true.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// Production reports whether client-facing errors must hide their detail.
func (c *Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvProduction)
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}

	s := &c.Server
	if s.Bind == "" {
		s.Bind = ":10000"
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 10 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 5 * time.Second
	}
	if len(s.CORS.AllowedOrigins) == 0 {
		s.CORS.AllowedOrigins = []string{"*"}
	}
	if len(s.CORS.AllowedMethods) == 0 {
		s.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(s.CORS.AllowedHeaders) == 0 {
		s.CORS.AllowedHeaders = []string{"Content-Type", "Authorization"}
	}

	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	c.Telegram.APIURL = strings.TrimRight(c.Telegram.APIURL, "/")
	if c.Telegram.Timeout == 0 {
		c.Telegram.Timeout = 60 * time.Second
	}

	if c.Relay.Mode == "" {
		c.Relay.Mode = ModeTyped
	}
	if c.Relay.Prefix == "" {
		c.Relay.Prefix = "/api/telegram"
	}
	c.Relay.Prefix = strings.TrimRight(c.Relay.Prefix, "/")

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 14
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "tgrelay"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}
