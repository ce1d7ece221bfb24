package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/insightfinder/mcp-server-go/internal/adapter/outbound/memory"
	"github.com/insightfinder/mcp-server-go/internal/sse"
	"github.com/insightfinder/mcp-server-go/internal/tool"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// HealthChecker verifies component health.
type HealthChecker struct {
	rateLimiter *memory.SlidingWindowLimiter
	connections *sse.Table
	registry    *tool.Registry
	version     string
}

// NewHealthChecker creates a HealthChecker with optional components.
// Pass nil for components that aren't available.
func NewHealthChecker(rateLimiter *memory.SlidingWindowLimiter, connections *sse.Table, registry *tool.Registry, version string) *HealthChecker {
	return &HealthChecker{
		rateLimiter: rateLimiter,
		connections: connections,
		registry:    registry,
		version:     version,
	}
}

// Check inspects each component.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.rateLimiter != nil {
		// Size acquires the limiter lock; a hang here means the
		// limiter is wedged.
		checks["rate_limiter"] = fmt.Sprintf("ok: %d keys", h.rateLimiter.Size())
	} else {
		checks["rate_limiter"] = "not configured"
	}

	if h.connections != nil {
		size := h.connections.Size()
		max := h.connections.Max()
		if size >= max {
			checks["sse_connections"] = fmt.Sprintf("saturated: %d/%d", size, max)
		} else {
			checks["sse_connections"] = fmt.Sprintf("ok: %d/%d", size, max)
		}
	} else {
		checks["sse_connections"] = "not configured"
	}

	if h.registry != nil {
		count := h.registry.Len()
		if count == 0 {
			checks["tools"] = "degraded: no tools registered"
			healthy = false
		} else {
			checks["tools"] = fmt.Sprintf("ok: %d registered", count)
		}
	} else {
		checks["tools"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(health)
	})
}
