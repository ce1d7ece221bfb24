package mcp

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

func TestEncodeDecodeRequest(t *testing.T) {
	id, err := jsonrpc.MakeID(float64(1))
	if err != nil {
		t.Fatalf("MakeID failed: %v", err)
	}

	params := json.RawMessage(`{"name":"get_current_time","arguments":{}}`)
	req := &jsonrpc.Request{
		ID:     id,
		Method: "tools/call",
		Params: params,
	}

	encoded, err := EncodeMessage(req)
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	decoded, err := DecodeMessage(encoded)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	decodedReq, ok := decoded.(*jsonrpc.Request)
	if !ok {
		t.Fatalf("expected *jsonrpc.Request, got %T", decoded)
	}

	if decodedReq.Method != "tools/call" {
		t.Errorf("expected method 'tools/call', got %q", decodedReq.Method)
	}
}

func TestWrapMessage(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","id":42,"method":"tools/list"}`)

	msg, err := WrapMessage(raw)
	if err != nil {
		t.Fatalf("WrapMessage failed: %v", err)
	}

	if !msg.IsRequest() {
		t.Error("expected message to be a request")
	}
	if msg.Method() != "tools/list" {
		t.Errorf("Method() = %q, want tools/list", msg.Method())
	}
	if got := string(msg.RawID()); got != "42" {
		t.Errorf("RawID() = %q, want 42", got)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestWrapMessageInvalidJSON(t *testing.T) {
	if _, err := WrapMessage([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestRawIDPreservesStringIDs(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","id":"req-7","method":"initialize"}`)

	msg, err := WrapMessage(raw)
	if err != nil {
		t.Fatalf("WrapMessage failed: %v", err)
	}

	if got := string(msg.RawID()); got != `"req-7"` {
		t.Errorf("RawID() = %q, want %q", got, `"req-7"`)
	}
}

func TestNewCallResult(t *testing.T) {
	value := map[string]any{"status": "success", "count": 3}

	result, err := NewCallResult(value)
	if err != nil {
		t.Fatalf("NewCallResult failed: %v", err)
	}

	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content block, got %d", len(result.Content))
	}
	block := result.Content[0]
	if block.Type != "text" {
		t.Errorf("content type = %q, want text", block.Type)
	}

	// The text block must round-trip to the original value.
	var parsed map[string]any
	if err := json.Unmarshal([]byte(block.Text), &parsed); err != nil {
		t.Fatalf("content text is not valid JSON: %v", err)
	}
	if parsed["status"] != "success" {
		t.Errorf("parsed status = %v, want success", parsed["status"])
	}
	if parsed["count"] != float64(3) {
		t.Errorf("parsed count = %v, want 3", parsed["count"])
	}

	// Pretty-printed output spans multiple lines.
	if !strings.Contains(block.Text, "\n") {
		t.Error("expected pretty-printed JSON with newlines")
	}
}
