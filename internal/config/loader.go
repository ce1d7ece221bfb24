// Package config provides configuration loading for the InsightFinder MCP server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for if-mcp-server.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself,
// which Viper's built-in SetConfigName would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("if-mcp-server")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: IF_MCP_SERVER_HTTP_ADDR
	viper.SetEnvPrefix("IF_MCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for an if-mcp-server config file
// with an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".if-mcp-server"),
		"/etc/if-mcp-server",
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for if-mcp-server.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "if-mcp-server"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable support.
// Example: IF_MCP_AUTH_API_KEY overrides auth.api_key
func bindNestedEnvKeys() {
	// Server config
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.max_payload_bytes")
	_ = viper.BindEnv("server.shutdown_timeout")

	// Auth config
	_ = viper.BindEnv("auth.enabled")
	_ = viper.BindEnv("auth.method")
	_ = viper.BindEnv("auth.api_key")
	_ = viper.BindEnv("auth.bearer_token")
	_ = viper.BindEnv("auth.basic_username")
	_ = viper.BindEnv("auth.basic_password")
	_ = viper.BindEnv("auth.trust_proxy_headers")
	// Note: auth.ip_whitelist is an array; use the config file for it.

	// Rate limit config
	_ = viper.BindEnv("rate_limit.enabled")
	_ = viper.BindEnv("rate_limit.max_per_minute")
	_ = viper.BindEnv("rate_limit.cleanup_interval")
	_ = viper.BindEnv("rate_limit.max_idle")

	// CORS config
	_ = viper.BindEnv("cors.enabled")

	// SSE config
	_ = viper.BindEnv("sse.heartbeat_enabled")
	_ = viper.BindEnv("sse.heartbeat_interval")
	_ = viper.BindEnv("sse.max_connections")
	_ = viper.BindEnv("sse.batch_pause")

	// Backend config
	_ = viper.BindEnv("backend.api_url")
	_ = viper.BindEnv("backend.timeout")
	_ = viper.BindEnv("backend.time_offset")

	// Dev mode
	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and returns the Config.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
