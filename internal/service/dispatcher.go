// Package service contains the protocol-level request handling that
// sits between the HTTP transport and the tool registry.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/insightfinder/mcp-server-go/internal/ifapi"
	"github.com/insightfinder/mcp-server-go/internal/tool"
	"github.com/insightfinder/mcp-server-go/pkg/mcp"
)

// MCP method names handled by the dispatcher.
const (
	MethodInitialize = "initialize"
	MethodListTools  = "tools/list"
	MethodCallTool   = "tools/call"
)

// Dispatcher routes decoded MCP requests to the registry and produces
// JSON-RPC responses. It is stateless across requests; per-request
// state (the backend client) rides on the context.
type Dispatcher struct {
	registry *tool.Registry
	server   mcp.ServerInfo
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher's logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher serving tools from registry and
// identifying itself as server in initialize results.
func NewDispatcher(registry *tool.Registry, server mcp.ServerInfo, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		server:   server,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles one MCP request. The apiClient carries the caller's
// backend credentials; it may be nil for methods that never reach the
// backend. The client is bound to a context scoped to this call only,
// so credentials cannot outlive the request that supplied them.
func (d *Dispatcher) Dispatch(ctx context.Context, apiClient *ifapi.Client, msg *mcp.Message) *mcp.Response {
	req := msg.Request()
	if req == nil {
		return mcp.NewErrorResponse(msg.RawID(), mcp.CodeInvalidParams, "expected a JSON-RPC request")
	}
	id := msg.RawID()

	switch req.Method {
	case MethodInitialize:
		return mcp.NewResultResponse(id, d.initializeResult())
	case MethodListTools:
		return mcp.NewResultResponse(id, d.listTools())
	case MethodCallTool:
		return d.callTool(ctx, apiClient, id, req.Params)
	default:
		d.logger.Debug("unknown method", "method", req.Method)
		return mcp.NewErrorResponse(id, mcp.CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

// Capabilities reports the descriptor advertised by initialize. The
// root banner endpoint reuses it.
func (d *Dispatcher) Capabilities() mcp.Capabilities {
	return d.initializeResult().Capabilities
}

func (d *Dispatcher) initializeResult() mcp.InitializeResult {
	return mcp.InitializeResult{
		ProtocolVersion: mcp.ProtocolVersion,
		Capabilities: mcp.Capabilities{
			Tools: mcp.ToolCapabilities{
				ListChanged:      true,
				SupportsProgress: false,
			},
			Logging:   map[string]any{},
			Prompts:   map[string]any{},
			Resources: map[string]any{},
			Experimental: map[string]any{
				"toolCount": d.registry.Len(),
			},
		},
		ServerInfo: d.server,
	}
}

// listTools converts every registered tool to its wire form. A tool
// whose schema cannot be rendered is skipped rather than failing the
// whole listing.
func (d *Dispatcher) listTools() mcp.ListToolsResult {
	descriptors := d.registry.List()
	result := mcp.ListToolsResult{Tools: make([]mcp.ToolInfo, 0, len(descriptors))}
	for _, desc := range descriptors {
		if !json.Valid(desc.InputSchema) {
			d.logger.Warn("skipping tool with invalid schema", "tool", desc.Name)
			continue
		}
		result.Tools = append(result.Tools, mcp.ToolInfo{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.InputSchema,
		})
	}
	return result
}

func (d *Dispatcher) callTool(ctx context.Context, apiClient *ifapi.Client, id json.RawMessage, params json.RawMessage) *mcp.Response {
	var call mcp.CallParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &call); err != nil {
			return mcp.NewErrorResponse(id, mcp.CodeInvalidParams, "Invalid params: "+err.Error())
		}
	}
	if call.Name == "" {
		return mcp.NewErrorResponse(id, mcp.CodeInvalidParams, "Invalid params: missing tool name")
	}

	desc, ok := d.registry.Lookup(call.Name)
	if !ok {
		return mcp.NewErrorResponse(id, mcp.CodeMethodNotFound, fmt.Sprintf("Tool not found: %s", call.Name))
	}

	// The backend client is visible only within this call's context.
	callCtx := ctx
	if apiClient != nil {
		callCtx = ifapi.WithClient(ctx, apiClient)
	}

	value, err := d.invoke(callCtx, desc, call.Arguments)
	if err != nil {
		d.logger.Error("tool execution failed", "tool", call.Name, "error", err)
		return mcp.NewErrorResponse(id, mcp.CodeInternalError, "Tool execution error: "+err.Error())
	}

	result, err := mcp.NewCallResult(value)
	if err != nil {
		d.logger.Error("tool result not serializable", "tool", call.Name, "error", err)
		return mcp.NewErrorResponse(id, mcp.CodeInternalError, "Tool execution error: "+err.Error())
	}
	return mcp.NewResultResponse(id, result)
}

// invoke runs the handler and converts a panic into an error so one
// misbehaving tool cannot take down the transport.
func (d *Dispatcher) invoke(ctx context.Context, desc tool.Descriptor, args map[string]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", desc.Name, r)
		}
	}()
	return desc.Handler(ctx, args)
}

// CallTool invokes a tool by name outside the JSON-RPC envelope. The
// streaming endpoints use it to run a tool and deliver the raw value
// over SSE.
func (d *Dispatcher) CallTool(ctx context.Context, apiClient *ifapi.Client, name string, args map[string]any) (any, error) {
	desc, ok := d.registry.Lookup(name)
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	callCtx := ctx
	if apiClient != nil {
		callCtx = ifapi.WithClient(ctx, apiClient)
	}
	return d.invoke(callCtx, desc, args)
}

// Tools exposes the registry listing for non-JSON-RPC endpoints.
func (d *Dispatcher) Tools() []tool.Descriptor {
	return d.registry.List()
}

// UnknownToolError reports a call to a tool that is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}
