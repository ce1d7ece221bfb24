// Package mcp provides MCP message types and JSON-RPC codec utilities
// for the InsightFinder MCP server.
package mcp

import (
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// ProtocolVersion is the MCP protocol version served by this transport.
const ProtocolVersion = "2024-11-05"

// JSON-RPC reserved error codes used by the dispatcher.
const (
	// CodeMethodNotFound covers unknown methods and unknown tool names.
	CodeMethodNotFound = -32601
	// CodeInvalidParams covers missing or malformed request parameters.
	CodeInvalidParams = -32602
	// CodeInternalError covers tool execution failures and unexpected errors.
	CodeInternalError = -32603
)

// CallParams are the parameters of a tools/call request.
type CallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolInfo describes one tool in a tools/list result.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// TextContent is a single text content block in a tools/call result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the result envelope of a successful tools/call.
// The raw tool return value is serialized into a single text content block
// so any MCP client can render it uniformly.
type CallResult struct {
	Content []TextContent `json:"content"`
}

// NewCallResult wraps a raw tool return value in the conventional
// single-text-block result envelope. The value is pretty-printed JSON.
func NewCallResult(value any) (*CallResult, error) {
	text, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, err
	}
	return &CallResult{
		Content: []TextContent{{Type: "text", Text: string(text)}},
	}, nil
}

// ServerInfo identifies the server in initialize results and SSE events.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities describes what the server supports.
type Capabilities struct {
	Tools        ToolCapabilities `json:"tools"`
	Logging      map[string]any   `json:"logging"`
	Prompts      map[string]any   `json:"prompts"`
	Resources    map[string]any   `json:"resources"`
	Experimental map[string]any   `json:"experimental"`
}

// ToolCapabilities describes the tool surface.
type ToolCapabilities struct {
	ListChanged      bool `json:"listChanged"`
	SupportsProgress bool `json:"supportsProgress"`
}

// InitializeResult is the result of the initialize method.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

// ListToolsResult is the result of the tools/list method.
type ListToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

// Message wraps a decoded JSON-RPC message with transport metadata.
// It stores both the raw bytes and the decoded message.
type Message struct {
	// Raw contains the original bytes of the message.
	Raw []byte

	// Decoded contains the parsed JSON-RPC message.
	// The concrete type is either *jsonrpc.Request or *jsonrpc.Response.
	Decoded jsonrpc.Message

	// Timestamp records when the message was received.
	Timestamp time.Time
}

// IsRequest returns true if the message is a JSON-RPC request.
func (m *Message) IsRequest() bool {
	if m.Decoded == nil {
		return false
	}
	_, ok := m.Decoded.(*jsonrpc.Request)
	return ok
}

// Method returns the method name if this is a request, empty string otherwise.
func (m *Message) Method() string {
	req := m.Request()
	if req == nil {
		return ""
	}
	return req.Method
}

// Request returns the underlying Request if this is a request message.
// Returns nil if this is not a request.
func (m *Message) Request() *jsonrpc.Request {
	if m.Decoded == nil {
		return nil
	}
	req, _ := m.Decoded.(*jsonrpc.Request)
	return req
}

// RawID extracts the request ID from the raw message bytes as json.RawMessage.
// The ID is extracted directly from the raw JSON so the original format
// (number, string, or null) is preserved when echoed in responses.
func (m *Message) RawID() json.RawMessage {
	if m.Raw == nil {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(m.Raw, &raw); err != nil {
		return nil
	}

	return raw["id"]
}
