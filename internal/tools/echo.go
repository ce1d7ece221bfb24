package tools

import (
	"context"
	"time"

	"github.com/insightfinder/mcp-server-go/internal/tool"
)

type echoArgs struct {
	Message string `json:"message" jsonschema:"description=Text to echo back"`
}

// RegisterEcho registers the echo tool, a minimal round-trip check for
// clients verifying their connection and credentials.
func RegisterEcho(r *tool.Registry) error {
	return tool.RegisterTyped(r, "echo",
		"Echo a message back, useful for verifying connectivity.",
		func(ctx context.Context, args echoArgs) (any, error) {
			return map[string]any{
				"message":     args.Message,
				"received_at": time.Now().UTC().Format(time.RFC3339),
			}, nil
		})
}

// RegisterAll registers every built-in tool.
func RegisterAll(r *tool.Registry) error {
	if err := RegisterTime(r, nil); err != nil {
		return err
	}
	return RegisterEcho(r)
}
