package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/insightfinder/mcp-server-go/internal/ctxkey"
	"github.com/insightfinder/mcp-server-go/internal/domain/auth"
)

// openPaths are served without the size guard or authentication so
// probes and load balancers always get through.
var openPaths = map[string]bool{
	"/":        true,
	"/health":  true,
	"/metrics": true,
}

// RequestIDMiddleware extracts or generates a request ID and stores an
// enriched logger in the request context for downstream handlers.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			enriched := logger.With("request_id", requestID)

			ctx := context.WithValue(r.Context(), ctxkey.RequestIDKey{}, requestID)
			ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, enriched)

			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext retrieves the request-enriched logger from ctx,
// falling back to slog.Default().
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// SizeLimitMiddleware rejects bodies over maxBytes with 413 before any
// handler reads them. Open paths are exempt.
func SizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if openPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > maxBytes {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			// Chunked bodies have no Content-Length; cap the reader so a
			// handler read past the limit fails instead of buffering.
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware authenticates every request except the open paths.
// Failures are converted to JSON error bodies at this boundary and
// never reach route handlers. The resolved client IP is stored in the
// request context.
func AuthMiddleware(authenticator *auth.Authenticator, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if openPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			clientIP, err := authenticator.Authenticate(r)
			if err != nil {
				status := http.StatusUnauthorized
				message := "authentication failed"
				if authErr, ok := auth.AsError(err); ok {
					status = authErr.Status
					message = authErr.Message
				}
				if metrics != nil {
					metrics.AuthFailuresTotal.WithLabelValues(statusText(status)).Inc()
				}
				LoggerFromContext(r.Context()).Warn("request rejected",
					"status", status,
					"client_ip", clientIP,
					"path", r.URL.Path,
				)
				writeJSONError(w, status, message)
				return
			}

			ctx := context.WithValue(r.Context(), ctxkey.ClientIPKey{}, clientIP)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPFromContext returns the authenticated client IP, or empty
// when the request skipped authentication.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ctxkey.ClientIPKey{}).(string)
	return ip
}

func statusText(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "401"
	case http.StatusForbidden:
		return "403"
	case http.StatusTooManyRequests:
		return "429"
	default:
		return "other"
	}
}

// writeJSONError writes a structured error body with the given status.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
