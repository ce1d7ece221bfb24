package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/insightfinder/mcp-server-go/internal/sse"
	"github.com/insightfinder/mcp-server-go/pkg/mcp"
)

type rpcResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  json.RawMessage  `json:"result"`
	Error   *mcp.ErrorObject `json:"error"`
}

func decodeRPC(t *testing.T, body []byte) rpcResponse {
	t.Helper()
	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("response not JSON-RPC: %v: %s", err, body)
	}
	return resp
}

func TestMCPInitialize(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, routerConfig{})
	rec := doRequest(t, router, http.MethodPost, "/mcp",
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	resp := decodeRPC(t, rec.Body.Bytes())
	if resp.Error != nil {
		t.Fatalf("error = %+v", resp.Error)
	}
	var result mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocolVersion = %q", result.ProtocolVersion)
	}
	if string(resp.ID) != "1" {
		t.Errorf("id = %s", resp.ID)
	}
}

func TestMCPToolsList(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, routerConfig{})
	rec := doRequest(t, router, http.MethodPost, "/mcp",
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, nil)

	resp := decodeRPC(t, rec.Body.Bytes())
	if resp.Error != nil {
		t.Fatalf("error = %+v", resp.Error)
	}
	var result mcp.ListToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(result.Tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(result.Tools))
	}
}

func TestMCPToolsCall(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, routerConfig{})
	rec := doRequest(t, router, http.MethodPost, "/mcp",
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"k":"v"}}}`,
		credentialHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeRPC(t, rec.Body.Bytes())
	if resp.Error != nil {
		t.Fatalf("error = %+v", resp.Error)
	}
	var result mcp.CallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(result.Content) != 1 || !strings.Contains(result.Content[0].Text, `"k": "v"`) {
		t.Errorf("content = %+v", result.Content)
	}
}

func TestMCPToolsCallRequiresBackendHeaders(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, routerConfig{})
	rec := doRequest(t, router, http.MethodPost, "/mcp",
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo"}}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "X-IF-License-Key") {
		t.Errorf("body = %s", rec.Body.String())
	}

	// Non-tool methods need no backend headers.
	rec = doRequest(t, router, http.MethodPost, "/mcp",
		`{"jsonrpc":"2.0","id":5,"method":"tools/list"}`, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("tools/list without headers = %d, want 200", rec.Code)
	}
}

func TestMCPProtocolErrorsStay200(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, routerConfig{})

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "unknown method",
			body:     `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`,
			wantCode: mcp.CodeMethodNotFound,
		},
		{
			name:     "unknown tool",
			body:     `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"nope"}}`,
			wantCode: mcp.CodeMethodNotFound,
		},
		{
			name:     "missing tool name",
			body:     `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{}}`,
			wantCode: mcp.CodeInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := doRequest(t, router, http.MethodPost, "/mcp", tt.body, credentialHeaders())
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			resp := decodeRPC(t, rec.Body.Bytes())
			if resp.Error == nil {
				t.Fatal("expected JSON-RPC error")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestMCPTransportErrorsAreNon2xx(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, routerConfig{})

	rec := doRequest(t, router, http.MethodPost, "/mcp", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body = %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/mcp", `{"jsonrpc":`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}
	var errBody map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("error body not JSON: %v", err)
	}
	if errBody["error"] == "" {
		t.Error("error body missing error field")
	}
}

func TestToolsListing(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, routerConfig{})
	rec := doRequest(t, router, http.MethodGet, "/tools", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Tools []mcp.ToolInfo `json:"tools"`
		Count int            `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.Count != 2 || len(body.Tools) != 2 {
		t.Fatalf("count = %d, tools = %d", body.Count, len(body.Tools))
	}
	if body.Tools[0].Name != "echo" {
		t.Errorf("first tool = %q", body.Tools[0].Name)
	}
}

func TestDirectToolCall(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, routerConfig{})

	rec := doRequest(t, router, http.MethodPost, "/tools/echo", `{"greeting":"hi"}`, credentialHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Tool   string         `json:"tool"`
		Result map[string]any `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.Tool != "echo" || body.Result["greeting"] != "hi" {
		t.Errorf("body = %+v", body)
	}

	// The arguments envelope form unwraps to the same call.
	rec = doRequest(t, router, http.MethodPost, "/tools/echo",
		`{"arguments":{"greeting":"hello"}}`, credentialHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("enveloped status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.Result["greeting"] != "hello" {
		t.Errorf("enveloped result = %+v", body.Result)
	}

	// Unknown tool is a 404.
	rec = doRequest(t, router, http.MethodPost, "/tools/missing", `{}`, credentialHeaders())
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown tool = %d, want 404", rec.Code)
	}

	// Missing backend headers is a 400.
	rec = doRequest(t, router, http.MethodPost, "/tools/echo", `{}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing headers = %d, want 400", rec.Code)
	}
}

func TestConnectionsListing(t *testing.T) {
	t.Parallel()

	table := sse.NewTable(5)
	table.Register()
	table.Register()

	router := newTestRouter(t, routerConfig{table: table})
	rec := doRequest(t, router, http.MethodGet, "/sse/connections", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Connections []sse.Connection `json:"connections"`
		Count       int              `json:"count"`
		Max         int              `json:"max"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.Count != 2 || body.Max != 5 {
		t.Errorf("count = %d, max = %d", body.Count, body.Max)
	}
	if len(body.Connections) != 2 || body.Connections[0].ID == "" {
		t.Errorf("connections = %+v", body.Connections)
	}
}
