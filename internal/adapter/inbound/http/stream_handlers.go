package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/insightfinder/mcp-server-go/internal/ifapi"
	"github.com/insightfinder/mcp-server-go/internal/service"
	"github.com/insightfinder/mcp-server-go/internal/sse"
	"github.com/insightfinder/mcp-server-go/pkg/mcp"
)

// handleEvents serves the long-lived event feed: a connected event,
// then heartbeats until the client goes away or the connection is
// marked inactive.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ew, conn, ok := h.openStream(w, r)
	if !ok {
		return
	}
	defer h.closeStream(conn.ID)

	if err := ew.Send(sse.EventConnected, h.connectedPayload(conn)); err != nil {
		return
	}

	interval := h.heartbeatInterval
	if !h.heartbeatEnabled {
		// No heartbeats; still poll so external deactivation is noticed.
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !h.table.IsActive(conn.ID) {
				return
			}
			if !h.heartbeatEnabled {
				continue
			}
			err := ew.Send(sse.EventHeartbeat, map[string]any{
				"connection_id": conn.ID,
				"timestamp":     time.Now().UTC().Format(time.RFC3339),
			})
			if err != nil {
				return
			}
		}
	}
}

// handleMCPStream accepts one JSON-RPC envelope and streams the reply.
// A tools/call request gets the full multi-event tool protocol; every
// other method gets a single mcp_response terminal event.
func (h *Handler) handleMCPStream(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.readMessage(w, r)
	if !ok {
		return
	}
	apiClient, ok := h.backendClient(w, r, msg)
	if !ok {
		return
	}

	ew, conn, ok := h.openStream(w, r)
	if !ok {
		return
	}
	defer h.closeStream(conn.ID)

	if msg.Method() == service.MethodCallTool {
		var call mcp.CallParams
		if req := msg.Request(); req != nil && len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &call); err != nil {
				_ = ew.Send(sse.EventToolError, map[string]any{
					"error": "Invalid params: " + err.Error(),
				})
				return
			}
		}
		if call.Name == "" {
			_ = ew.Send(sse.EventToolError, map[string]any{
				"error": "Invalid params: missing tool name",
			})
			return
		}
		h.streamToolCall(r.Context(), ew, conn, apiClient, call.Name, call.Arguments)
		return
	}

	resp := h.dispatcher.Dispatch(r.Context(), apiClient, msg)
	_ = ew.Send(sse.EventMCPResponse, resp)
}

// handleToolStream runs one tool and streams its result with progress
// batching. The body is the arguments object.
func (h *Handler) handleToolStream(w http.ResponseWriter, r *http.Request) {
	toolName := chi.URLParam(r, "tool_name")

	args, ok := h.readArguments(w, r)
	if !ok {
		return
	}
	apiClient, ok := h.requireBackendClient(w, r)
	if !ok {
		return
	}

	ew, conn, ok := h.openStream(w, r)
	if !ok {
		return
	}
	defer h.closeStream(conn.ID)

	h.streamToolCall(r.Context(), ew, conn, apiClient, toolName, args)
}

// streamToolCall emits the tool event protocol: tool_started, then the
// batched result chunks, then tool_completed (or tool_error). Client
// disconnection and external deactivation are honored before each
// event.
func (h *Handler) streamToolCall(ctx context.Context, ew *sse.EventWriter, conn sse.Connection, apiClient *ifapi.Client, toolName string, args map[string]any) {
	logger := h.logger.With("tool", toolName, "connection_id", conn.ID)

	err := ew.Send(sse.EventToolStarted, map[string]any{
		"tool":          toolName,
		"connection_id": conn.ID,
	})
	if err != nil {
		return
	}

	value, err := h.dispatcher.CallTool(ctx, apiClient, toolName, args)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
		}
		logger.Error("streamed tool call failed", "error", err)
		_ = ew.Send(sse.EventToolError, map[string]any{
			"tool":  toolName,
			"error": "Tool execution error: " + err.Error(),
		})
		return
	}

	chunks := sse.Chunks(value)
	for i, chunk := range chunks {
		if !h.streamAlive(ctx, conn.ID) {
			logger.Debug("client disconnected mid-stream", "delivered", i, "total", len(chunks))
			return
		}
		// Pace successive batches so a large result does not saturate
		// the connection.
		if i > 0 && chunk.Event == sse.EventPartialResult && h.batchPause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(h.batchPause):
			}
		}
		if err := ew.Send(chunk.Event, chunk.Data); err != nil {
			return
		}
	}

	if !h.streamAlive(ctx, conn.ID) {
		return
	}
	if h.metrics != nil {
		h.metrics.ToolCallsTotal.WithLabelValues(toolName, "ok").Inc()
	}
	_ = ew.Send(sse.EventToolCompleted, map[string]any{"tool": toolName})
}

// openStream registers a connection and prepares the SSE writer.
func (h *Handler) openStream(w http.ResponseWriter, r *http.Request) (*sse.EventWriter, sse.Connection, bool) {
	ew, err := sse.NewEventWriter(w)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return nil, sse.Connection{}, false
	}

	conn := h.table.Register()
	if h.metrics != nil {
		h.metrics.SSEConnections.Set(float64(h.table.Size()))
	}
	LoggerFromContext(r.Context()).Info("streaming connection opened", "connection_id", conn.ID)
	return ew, conn, true
}

// closeStream removes a connection on any terminal path.
func (h *Handler) closeStream(id string) {
	h.table.Remove(id)
	if h.metrics != nil {
		h.metrics.SSEConnections.Set(float64(h.table.Size()))
	}
}

// deactivateStreams flags every tracked connection for termination.
// Called during shutdown.
func (h *Handler) deactivateStreams() {
	for _, c := range h.table.Snapshot() {
		h.table.MarkInactive(c.ID)
	}
}

func (h *Handler) streamAlive(ctx context.Context, connID string) bool {
	return ctx.Err() == nil && h.table.IsActive(connID)
}

func (h *Handler) connectedPayload(conn sse.Connection) map[string]any {
	return map[string]any{
		"connection_id": conn.ID,
		"server": map[string]string{
			"name":    h.server.Name,
			"version": h.server.Version,
		},
	}
}
