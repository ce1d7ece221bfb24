// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger.
// Used by HTTP middleware to store and retrieve the logger with the request_id field.
type LoggerKey struct{}

// RequestIDKey is the context key type for the request ID.
type RequestIDKey struct{}

// APIClientKey is the context key type for the per-request backend API client.
// Bound by the dispatcher for the duration of a single tools/call invocation.
type APIClientKey struct{}

// ClientIPKey is the context key type for the resolved client IP address.
// Set by the authentication middleware after proxy-header resolution.
type ClientIPKey struct{}
