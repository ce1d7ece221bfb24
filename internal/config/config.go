// Package config provides configuration types for the InsightFinder MCP server.
//
// Configuration is loaded from if-mcp-server.yaml (or environment variables
// with the IF_MCP_ prefix) once at startup and treated as an immutable
// snapshot afterward.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for the MCP server.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Auth configures request authentication.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// RateLimit configures per-client rate limiting.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// CORS configures cross-origin resource sharing.
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`

	// SSE configures the streaming engine.
	SSE SSEConfig `yaml:"sse" mapstructure:"sse"`

	// Backend configures the InsightFinder API the tools call on behalf
	// of the caller.
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`

	// DevMode enables development features (pretty logging, debug level).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8000", "0.0.0.0:8000").
	// Defaults to "127.0.0.1:8000" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// MaxPayloadBytes is the request body ceiling for POST endpoints.
	// Bodies over this size are rejected with 413. Defaults to 1 MiB.
	MaxPayloadBytes int64 `yaml:"max_payload_bytes" mapstructure:"max_payload_bytes" validate:"omitempty,min=1"`

	// ShutdownTimeout is how long to wait for in-flight requests on
	// shutdown (e.g., "10s"). Defaults to "10s".
	ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"omitempty"`
}

// AuthMethod values accepted by AuthConfig.Method.
const (
	AuthMethodAPIKey = "api_key"
	AuthMethodBearer = "bearer"
	AuthMethodBasic  = "basic"
)

// AuthConfig configures request authentication.
//
// Secret fields (APIKey, BearerToken, BasicPassword) accept either a
// plaintext value or a hash with an "argon2id:" or "sha256:" prefix.
// Generate hashes with: if-mcp-server hash-secret "your-secret".
type AuthConfig struct {
	// Enabled turns authentication on or off.
	// When off, all requests are admitted without credential checks.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Method selects the credential scheme.
	// Valid values: "api_key", "bearer", "basic". Defaults to "api_key".
	Method string `yaml:"method" mapstructure:"method" validate:"omitempty,oneof=api_key bearer basic"`

	// APIKey is the shared secret for the api_key method
	// (X-API-Key header or api_key query parameter).
	// If empty while the method is selected, a random key is generated
	// at startup and logged as a warning.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// BearerToken is the shared secret for the bearer method.
	BearerToken string `yaml:"bearer_token" mapstructure:"bearer_token"`

	// BasicUsername is the username for the basic method.
	// Defaults to "admin" when basic auth is selected.
	BasicUsername string `yaml:"basic_username" mapstructure:"basic_username"`

	// BasicPassword is the password for the basic method.
	BasicPassword string `yaml:"basic_password" mapstructure:"basic_password"`

	// IPWhitelist restricts callers to the listed addresses.
	// Entries are single IPs or CIDR blocks (e.g., "10.0.0.0/8").
	// Empty means all addresses are allowed.
	IPWhitelist []string `yaml:"ip_whitelist" mapstructure:"ip_whitelist" validate:"omitempty,dive,cidr_or_ip"`

	// TrustProxyHeaders enables client-IP resolution from forwarded
	// headers (X-Forwarded-For, X-Real-IP, CF-Connecting-IP, X-Forwarded).
	// Only enable when a trusted reverse proxy sets these headers.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers" mapstructure:"trust_proxy_headers"`
}

// RateLimitConfig configures the sliding-window rate limiter.
type RateLimitConfig struct {
	// Enabled turns rate limiting on or off.
	// Defaults to true when auth is enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// MaxPerMinute is the maximum requests per 60-second window per
	// client identity (ip + user agent). Exceeding it triggers a flat
	// 60-second lockout. Defaults to 60.
	MaxPerMinute int `yaml:"max_per_minute" mapstructure:"max_per_minute" validate:"omitempty,min=1"`

	// CleanupInterval is how often idle client entries are pruned
	// (e.g., "5m"). Defaults to "5m".
	CleanupInterval string `yaml:"cleanup_interval" mapstructure:"cleanup_interval" validate:"omitempty"`

	// MaxIdle is the maximum idle age of a client entry before removal
	// (e.g., "1h"). Defaults to "1h".
	MaxIdle string `yaml:"max_idle" mapstructure:"max_idle" validate:"omitempty"`
}

// CORSConfig configures cross-origin resource sharing.
type CORSConfig struct {
	// Enabled turns the CORS middleware on or off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Origins is the list of allowed origins. Defaults to ["*"].
	Origins []string `yaml:"origins" mapstructure:"origins"`
}

// SSEConfig configures the streaming engine.
type SSEConfig struct {
	// HeartbeatEnabled turns heartbeat events on the event feed on or off.
	// Defaults to true.
	HeartbeatEnabled bool `yaml:"heartbeat_enabled" mapstructure:"heartbeat_enabled"`

	// HeartbeatInterval is the pause between heartbeat events (e.g., "30s").
	// Defaults to "30s".
	HeartbeatInterval string `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval" validate:"omitempty"`

	// MaxConnections caps the connection table. Admitting a connection
	// beyond the cap evicts the oldest tracked connection. Defaults to 100.
	MaxConnections int `yaml:"max_connections" mapstructure:"max_connections" validate:"omitempty,min=1"`

	// BatchPause is the pause between result batches (e.g., "100ms").
	// Defaults to "100ms".
	BatchPause string `yaml:"batch_pause" mapstructure:"batch_pause" validate:"omitempty"`
}

// BackendConfig configures the InsightFinder API client defaults.
// Per-request credentials always come from request headers; these values
// supply the fallback API URL and transport settings.
type BackendConfig struct {
	// APIURL is the default InsightFinder API base URL, used when the
	// request carries no X-IF-API-URL header.
	APIURL string `yaml:"api_url" mapstructure:"api_url" validate:"omitempty,url"`

	// Timeout is the HTTP timeout for backend calls (e.g., "30s").
	// Defaults to "30s".
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty"`

	// TimeOffset corrects backend timestamps before display (e.g., "4h").
	// The API has been observed returning timestamps 4 hours behind local
	// time; verify against the deployed backend before changing.
	// Defaults to "4h".
	TimeOffset string `yaml:"time_offset" mapstructure:"time_offset" validate:"omitempty"`
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	// Server defaults. Bind to localhost only unless configured otherwise.
	// Users who need network access must explicitly set http_addr.
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8000"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.MaxPayloadBytes == 0 {
		c.Server.MaxPayloadBytes = 1 << 20
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	// Auth defaults
	if c.Auth.Method == "" {
		c.Auth.Method = AuthMethodAPIKey
	}
	if c.Auth.Method == AuthMethodBasic && c.Auth.BasicUsername == "" {
		c.Auth.BasicUsername = "admin"
	}

	// Rate limiting is enabled by default when auth is on.
	// viper.IsSet distinguishes "not set" (zero value) from "explicitly false".
	if !viper.IsSet("rate_limit.enabled") {
		c.RateLimit.Enabled = c.Auth.Enabled
	}
	if c.RateLimit.MaxPerMinute == 0 {
		c.RateLimit.MaxPerMinute = 60
	}
	if c.RateLimit.CleanupInterval == "" {
		c.RateLimit.CleanupInterval = "5m"
	}
	if c.RateLimit.MaxIdle == "" {
		c.RateLimit.MaxIdle = "1h"
	}

	// CORS defaults
	if len(c.CORS.Origins) == 0 {
		c.CORS.Origins = []string{"*"}
	}

	// SSE defaults
	if !viper.IsSet("sse.heartbeat_enabled") {
		c.SSE.HeartbeatEnabled = true
	}
	if c.SSE.HeartbeatInterval == "" {
		c.SSE.HeartbeatInterval = "30s"
	}
	if c.SSE.MaxConnections == 0 {
		c.SSE.MaxConnections = 100
	}
	if c.SSE.BatchPause == "" {
		c.SSE.BatchPause = "100ms"
	}

	// Backend defaults
	if c.Backend.APIURL == "" {
		c.Backend.APIURL = "https://app.insightfinder.com"
	}
	if c.Backend.Timeout == "" {
		c.Backend.Timeout = "30s"
	}
	if c.Backend.TimeOffset == "" {
		c.Backend.TimeOffset = "4h"
	}
}

// SetDevDefaults applies permissive defaults for development mode.
// Applied BEFORE validation so minimal configs run out of the box.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}

	if c.Server.LogLevel == "" || c.Server.LogLevel == "info" {
		c.Server.LogLevel = "debug"
	}
}

// parseDuration returns the parsed duration or the fallback when the
// field is empty or malformed. Validation reports malformed durations;
// the fallback keeps accessors total.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout.
func (c ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(c.ShutdownTimeout, 10*time.Second)
}

// CleanupIntervalDuration returns the parsed cleanup interval.
func (c RateLimitConfig) CleanupIntervalDuration() time.Duration {
	return parseDuration(c.CleanupInterval, 5*time.Minute)
}

// MaxIdleDuration returns the parsed maximum idle age.
func (c RateLimitConfig) MaxIdleDuration() time.Duration {
	return parseDuration(c.MaxIdle, time.Hour)
}

// HeartbeatIntervalDuration returns the parsed heartbeat interval.
func (c SSEConfig) HeartbeatIntervalDuration() time.Duration {
	return parseDuration(c.HeartbeatInterval, 30*time.Second)
}

// BatchPauseDuration returns the parsed inter-batch pause.
func (c SSEConfig) BatchPauseDuration() time.Duration {
	return parseDuration(c.BatchPause, 100*time.Millisecond)
}

// TimeoutDuration returns the parsed backend HTTP timeout.
func (c BackendConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// TimeOffsetDuration returns the parsed timestamp correction offset.
// Unlike the other duration fields, zero and negative offsets are valid.
func (c BackendConfig) TimeOffsetDuration() time.Duration {
	d, err := time.ParseDuration(c.TimeOffset)
	if err != nil {
		return 4 * time.Hour
	}
	return d
}
