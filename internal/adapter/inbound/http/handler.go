package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/insightfinder/mcp-server-go/internal/ifapi"
	"github.com/insightfinder/mcp-server-go/internal/service"
	"github.com/insightfinder/mcp-server-go/internal/sse"
	"github.com/insightfinder/mcp-server-go/pkg/mcp"
)

// Handler serves the MCP protocol and tool endpoints.
type Handler struct {
	dispatcher *service.Dispatcher
	table      *sse.Table
	backend    ifapi.Defaults
	server     mcp.ServerInfo

	heartbeatEnabled  bool
	heartbeatInterval time.Duration
	batchPause        time.Duration

	authEnabled bool
	authMethod  string

	metrics *Metrics
	logger  *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHeartbeat configures the event-feed heartbeat.
func WithHeartbeat(enabled bool, interval time.Duration) HandlerOption {
	return func(h *Handler) {
		h.heartbeatEnabled = enabled
		if interval > 0 {
			h.heartbeatInterval = interval
		}
	}
}

// WithBatchPause sets the pause between streamed result batches.
func WithBatchPause(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.batchPause = d
	}
}

// WithAuthInfo sets the authentication status shown on the root banner.
func WithAuthInfo(enabled bool, method string) HandlerOption {
	return func(h *Handler) {
		h.authEnabled = enabled
		h.authMethod = method
	}
}

// WithHandlerMetrics sets the metrics sink.
func WithHandlerMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithHandlerLogger sets the handler's logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates the route handler set.
func NewHandler(dispatcher *service.Dispatcher, table *sse.Table, backend ifapi.Defaults, server mcp.ServerInfo, opts ...HandlerOption) *Handler {
	h := &Handler{
		dispatcher:        dispatcher,
		table:             table,
		backend:           backend,
		server:            server,
		heartbeatEnabled:  true,
		heartbeatInterval: 30 * time.Second,
		batchPause:        100 * time.Millisecond,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// handleRoot serves the service banner. It is an open path so load
// balancers can probe it without credentials.
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	var method any
	if h.authEnabled {
		method = h.authMethod
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":             h.server.Name,
		"version":          h.server.Version,
		"status":           "running",
		"protocol_version": mcp.ProtocolVersion,
		"authentication": map[string]any{
			"enabled": h.authEnabled,
			"method":  method,
		},
		"capabilities": h.dispatcher.Capabilities(),
		"endpoints": map[string]string{
			"mcp":         "/mcp",
			"mcp_events":  "/mcp/events",
			"mcp_stream":  "/mcp/stream",
			"tools":       "/tools",
			"tool_call":   "/tools/{tool_name}",
			"tool_stream": "/tools/{tool_name}/stream",
			"connections": "/sse/connections",
			"health":      "/health",
			"metrics":     "/metrics",
		},
	})
}

// handleMCP serves single-shot JSON-RPC requests. Protocol-level
// failures come back as JSON-RPC error bodies on a 200; only transport
// failures (empty or malformed body, missing credential headers)
// produce non-2xx statuses.
func (h *Handler) handleMCP(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.readMessage(w, r)
	if !ok {
		return
	}

	apiClient, ok := h.backendClient(w, r, msg)
	if !ok {
		return
	}

	resp := h.dispatcher.Dispatch(r.Context(), apiClient, msg)
	h.recordToolOutcome(msg, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleListTools serves the plain-HTTP tool listing.
func (h *Handler) handleListTools(w http.ResponseWriter, r *http.Request) {
	descriptors := h.dispatcher.Tools()
	tools := make([]mcp.ToolInfo, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, mcp.ToolInfo{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": tools,
		"count": len(tools),
	})
}

// handleCallTool invokes one tool outside the JSON-RPC envelope. The
// body is the arguments object, optionally wrapped in {"arguments": …}.
func (h *Handler) handleCallTool(w http.ResponseWriter, r *http.Request) {
	toolName := chi.URLParam(r, "tool_name")

	args, ok := h.readArguments(w, r)
	if !ok {
		return
	}
	apiClient, ok := h.requireBackendClient(w, r)
	if !ok {
		return
	}

	value, err := h.dispatcher.CallTool(r.Context(), apiClient, toolName, args)
	if err != nil {
		var unknown *service.UnknownToolError
		if errors.As(err, &unknown) {
			writeJSONError(w, http.StatusNotFound, unknown.Error())
			return
		}
		if h.metrics != nil {
			h.metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
		}
		LoggerFromContext(r.Context()).Error("tool call failed", "tool", toolName, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Tool execution error: "+err.Error())
		return
	}
	if h.metrics != nil {
		h.metrics.ToolCallsTotal.WithLabelValues(toolName, "ok").Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tool":   toolName,
		"result": value,
	})
}

// handleConnections serves the debug listing of tracked streaming
// connections.
func (h *Handler) handleConnections(w http.ResponseWriter, r *http.Request) {
	conns := h.table.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"connections": conns,
		"count":       len(conns),
		"max":         h.table.Max(),
	})
}

// readMessage decodes the JSON-RPC envelope from the body, writing the
// transport-level error response itself when the body is unusable.
func (h *Handler) readMessage(w http.ResponseWriter, r *http.Request) (*mcp.Message, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	if len(body) == 0 {
		writeJSONError(w, http.StatusBadRequest, "empty request body")
		return nil, false
	}

	msg, err := mcp.WrapMessage(body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON-RPC message: "+err.Error())
		return nil, false
	}
	return msg, true
}

// readArguments decodes a tool-argument body. An empty body means no
// arguments.
func (h *Handler) readArguments(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	if len(body) == 0 {
		return map[string]any{}, true
	}

	var args map[string]any
	if err := json.Unmarshal(body, &args); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return nil, false
	}
	// Unwrap a JSON-RPC-style {"arguments": {...}} envelope.
	if len(args) == 1 {
		if inner, ok := args["arguments"].(map[string]any); ok {
			return inner, true
		}
	}
	return args, true
}

// backendClient resolves credentials when the message needs them. Only
// tools/call reaches the backend; other methods dispatch without a
// client.
func (h *Handler) backendClient(w http.ResponseWriter, r *http.Request, msg *mcp.Message) (*ifapi.Client, bool) {
	if msg.Method() != service.MethodCallTool {
		return nil, true
	}
	return h.requireBackendClient(w, r)
}

// requireBackendClient builds the per-request backend client, writing
// a 400 when a required credential header is missing.
func (h *Handler) requireBackendClient(w http.ResponseWriter, r *http.Request) (*ifapi.Client, bool) {
	apiClient, err := ifapi.FromRequest(r, h.backend)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return apiClient, true
}

func (h *Handler) recordToolOutcome(msg *mcp.Message, resp *mcp.Response) {
	if h.metrics == nil || msg.Method() != service.MethodCallTool {
		return
	}
	var call mcp.CallParams
	if req := msg.Request(); req != nil && len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params, &call)
	}
	if call.Name == "" {
		return
	}
	status := "ok"
	if resp.Error != nil {
		status = "error"
	}
	h.metrics.ToolCallsTotal.WithLabelValues(call.Name, status).Inc()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
