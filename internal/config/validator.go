package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers server-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	// cidr_or_ip: validates a single IP address or a CIDR block
	if err := v.RegisterValidation("cidr_or_ip", validateCIDROrIP); err != nil {
		return fmt.Errorf("failed to register cidr_or_ip validator: %w", err)
	}
	return nil
}

// validateCIDROrIP validates an IP whitelist entry.
// Valid values: a single IP ("192.168.1.5") or a CIDR block ("10.0.0.0/8").
func validateCIDROrIP(fl validator.FieldLevel) bool {
	entry := fl.Field().String()
	if entry == "" {
		return false
	}
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateDurations(); err != nil {
		return err
	}

	if c.Auth.Enabled && c.Auth.Method == AuthMethodBasic && c.Auth.BasicUsername == "" {
		return errors.New("auth: basic_username is required when method is basic")
	}

	return nil
}

// validateDurations checks that all duration-typed string fields parse.
func (c *Config) validateDurations() error {
	fields := map[string]string{
		"server.shutdown_timeout":     c.Server.ShutdownTimeout,
		"rate_limit.cleanup_interval": c.RateLimit.CleanupInterval,
		"rate_limit.max_idle":         c.RateLimit.MaxIdle,
		"sse.heartbeat_interval":      c.SSE.HeartbeatInterval,
		"sse.batch_pause":             c.SSE.BatchPause,
		"backend.timeout":             c.Backend.Timeout,
		"backend.time_offset":         c.Backend.TimeOffset,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", name, value)
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "cidr_or_ip":
		return fmt.Sprintf("%s must be an IP address or CIDR block", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
