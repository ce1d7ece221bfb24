package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/insightfinder/mcp-server-go/internal/domain/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transport is the inbound HTTP adapter. It owns the router, the
// middleware chain, and the server lifecycle.
type Transport struct {
	handler       *Handler
	authenticator *auth.Authenticator
	healthChecker *HealthChecker

	server          *http.Server
	addr            string
	maxPayloadBytes int64
	shutdownTimeout time.Duration
	corsEnabled     bool
	corsOrigins     []string
	logger          *slog.Logger
	metrics         *Metrics
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithAddr sets the listen address. Default is "127.0.0.1:8000".
func WithAddr(addr string) TransportOption {
	return func(t *Transport) {
		t.addr = addr
	}
}

// WithMaxPayloadBytes sets the request body ceiling enforced by the
// size guard.
func WithMaxPayloadBytes(n int64) TransportOption {
	return func(t *Transport) {
		if n > 0 {
			t.maxPayloadBytes = n
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.shutdownTimeout = d
		}
	}
}

// WithCORS enables CORS for the given origins.
func WithCORS(enabled bool, origins []string) TransportOption {
	return func(t *Transport) {
		t.corsEnabled = enabled
		t.corsOrigins = origins
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) TransportOption {
	return func(t *Transport) {
		t.healthChecker = hc
	}
}

// WithTransportLogger sets the transport's logger.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = logger
	}
}

// NewTransport creates the HTTP transport around the route handlers
// and the authenticator.
func NewTransport(handler *Handler, authenticator *auth.Authenticator, opts ...TransportOption) *Transport {
	t := &Transport{
		handler:         handler,
		authenticator:   authenticator,
		addr:            "127.0.0.1:8000",
		maxPayloadBytes: 1 << 20,
		shutdownTimeout: 10 * time.Second,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Router builds the full route and middleware stack. Exposed so tests
// can drive the transport through httptest without a listener.
func (t *Transport) Router() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(reg)
	t.handler.metrics = t.metrics

	r := chi.NewRouter()

	// Middleware order, outermost first: metrics captures the full
	// request, then request-ID enrichment, CORS, the size guard, and
	// authentication. Open paths bypass the guard and auth inside the
	// respective middlewares.
	r.Use(MetricsMiddleware(t.metrics))
	r.Use(RequestIDMiddleware(t.logger))
	if t.corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   t.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(SizeLimitMiddleware(t.maxPayloadBytes))
	r.Use(AuthMiddleware(t.authenticator, t.metrics))

	r.Get("/", t.handler.handleRoot)
	if t.healthChecker != nil {
		r.Method(http.MethodGet, "/health", t.healthChecker.Handler())
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		})
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	}))

	r.Post("/mcp", t.handler.handleMCP)
	r.Get("/mcp/events", t.handler.handleEvents)
	r.Post("/mcp/stream", t.handler.handleMCPStream)
	r.Get("/tools", t.handler.handleListTools)
	r.Post("/tools/{tool_name}", t.handler.handleCallTool)
	r.Post("/tools/{tool_name}/stream", t.handler.handleToolStream)
	r.Get("/sse/connections", t.handler.handleConnections)

	return r
}

// Start begins accepting connections and blocks until the context is
// cancelled or the server fails.
func (t *Transport) Start(ctx context.Context) error {
	t.server = &http.Server{
		Addr:    t.addr,
		Handler: t.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		t.logger.Info("starting HTTP server", "addr", t.addr)
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown drains in-flight requests within the shutdown timeout.
func (t *Transport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), t.shutdownTimeout)
	defer cancel()

	// Flag open streams so their loops terminate instead of holding
	// the drain open.
	t.handler.deactivateStreams()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}
	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *Transport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
