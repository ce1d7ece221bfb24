package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	inbound "github.com/insightfinder/mcp-server-go/internal/adapter/inbound/http"
	"github.com/insightfinder/mcp-server-go/internal/adapter/outbound/memory"
	"github.com/insightfinder/mcp-server-go/internal/config"
	"github.com/insightfinder/mcp-server-go/internal/domain/auth"
	"github.com/insightfinder/mcp-server-go/internal/domain/ratelimit"
	"github.com/insightfinder/mcp-server-go/internal/ifapi"
	"github.com/insightfinder/mcp-server-go/internal/service"
	"github.com/insightfinder/mcp-server-go/internal/sse"
	"github.com/insightfinder/mcp-server-go/internal/tool"
	"github.com/insightfinder/mcp-server-go/internal/tools"
	"github.com/insightfinder/mcp-server-go/pkg/mcp"
)

var devMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the MCP server and listen for HTTP and SSE clients.

Examples:
  # Start with config file settings
  if-mcp-server serve

  # Start with a specific config file
  if-mcp-server --config /path/to/config.yaml serve

  # Development mode: debug logging, human-readable output
  if-mcp-server serve --dev`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging, pretty output)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// Graceful shutdown on SIGINT/SIGTERM; a second signal kills hard.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("if-mcp-server stopped")
	return nil
}

// run wires all components together and serves until ctx is done.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Tool registry is sealed before the transport starts; dispatch
	// never races a registration.
	registry := tool.NewRegistry()
	if err := tools.RegisterAll(registry); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	var limiter *memory.SlidingWindowLimiter
	if cfg.RateLimit.Enabled {
		limiter = memory.NewSlidingWindowLimiterWithConfig(
			cfg.RateLimit.MaxPerMinute,
			cfg.RateLimit.CleanupIntervalDuration(),
			cfg.RateLimit.MaxIdleDuration(),
		)
		limiter.StartCleanup(ctx)
		defer limiter.Stop()
	}

	filter := auth.NewIPFilter(cfg.Auth.IPWhitelist, logger)
	authenticator := auth.NewAuthenticator(auth.Settings{
		Enabled:           cfg.Auth.Enabled,
		Method:            cfg.Auth.Method,
		APIKey:            cfg.Auth.APIKey,
		BearerToken:       cfg.Auth.BearerToken,
		BasicUsername:     cfg.Auth.BasicUsername,
		BasicPassword:     cfg.Auth.BasicPassword,
		TrustProxyHeaders: cfg.Auth.TrustProxyHeaders,
	}, filter, limiterOrNil(limiter), logger)
	if err := authenticator.EnsureSecrets(); err != nil {
		return fmt.Errorf("failed to prepare auth secrets: %w", err)
	}

	serverInfo := mcp.ServerInfo{Name: "if-mcp-server", Version: Version}
	dispatcher := service.NewDispatcher(registry, serverInfo,
		service.WithDispatcherLogger(logger),
	)

	table := sse.NewTable(cfg.SSE.MaxConnections, sse.WithTableLogger(logger))
	handler := inbound.NewHandler(dispatcher, table,
		ifapi.Defaults{
			APIURL:     cfg.Backend.APIURL,
			Timeout:    cfg.Backend.TimeoutDuration(),
			TimeOffset: cfg.Backend.TimeOffsetDuration(),
		},
		serverInfo,
		inbound.WithAuthInfo(cfg.Auth.Enabled, cfg.Auth.Method),
		inbound.WithHeartbeat(cfg.SSE.HeartbeatEnabled, cfg.SSE.HeartbeatIntervalDuration()),
		inbound.WithBatchPause(cfg.SSE.BatchPauseDuration()),
		inbound.WithHandlerLogger(logger),
	)

	healthChecker := inbound.NewHealthChecker(limiter, table, registry, Version)
	transport := inbound.NewTransport(handler, authenticator,
		inbound.WithAddr(cfg.Server.HTTPAddr),
		inbound.WithMaxPayloadBytes(cfg.Server.MaxPayloadBytes),
		inbound.WithShutdownTimeout(cfg.Server.ShutdownTimeoutDuration()),
		inbound.WithCORS(cfg.CORS.Enabled, cfg.CORS.Origins),
		inbound.WithHealthChecker(healthChecker),
		inbound.WithTransportLogger(logger),
	)

	logger.Info("if-mcp-server starting",
		"addr", cfg.Server.HTTPAddr,
		"auth_enabled", cfg.Auth.Enabled,
		"auth_method", cfg.Auth.Method,
		"rate_limit_enabled", cfg.RateLimit.Enabled,
		"max_connections", cfg.SSE.MaxConnections,
		"tools", registry.Len(),
		"backend", cfg.Backend.APIURL,
	)

	return transport.Start(ctx)
}

// limiterOrNil avoids handing a typed-nil limiter to the
// authenticator's interface field.
func limiterOrNil(l *memory.SlidingWindowLimiter) ratelimit.Limiter {
	if l == nil {
		return nil
	}
	return l
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// parseLogLevel converts a string log level to slog.Level. Returns
// slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
