// Package http provides the inbound HTTP transport for the MCP server.
//
// It exposes the JSON-RPC tool-invocation protocol over plain HTTP and
// SSE, with per-request authentication, rate limiting, and
// request-scoped backend-credential propagation.
//
// # Usage
//
// Create and start the transport:
//
//	transport := http.NewTransport(handler, authenticator,
//	    http.WithAddr(":8000"),
//	    http.WithMaxPayloadBytes(1<<20),
//	    http.WithTransportLogger(logger),
//	)
//	err := transport.Start(ctx)
//
// # Endpoints
//
//	GET  /                         - Service banner (open)
//	GET  /health                   - Component health (open)
//	GET  /metrics                  - Prometheus metrics (open)
//	POST /mcp                      - JSON-RPC request/response
//	GET  /mcp/events               - SSE event feed with heartbeats
//	POST /mcp/stream               - JSON-RPC request with streamed reply
//	GET  /tools                    - Tool listing
//	POST /tools/{tool_name}        - Direct tool invocation
//	POST /tools/{tool_name}/stream - Tool invocation with batched SSE delivery
//	GET  /sse/connections          - Debug listing of tracked connections
//
// # Request Headers
//
//	X-API-Key / Authorization      - Transport credential, per configured method
//	X-IF-License-Key               - Backend license key (required for tool calls)
//	X-IF-User-Name                 - Backend user name (required for tool calls)
//	X-IF-API-URL                   - Optional backend URL override
//
// Middleware order, outermost first: metrics, request ID, CORS, size
// guard (413 over the configured ceiling), authentication. The open
// endpoints bypass the size guard and authentication.
package http
