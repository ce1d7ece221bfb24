package ifapi

import (
	"context"
	"errors"

	"github.com/insightfinder/mcp-server-go/internal/ctxkey"
)

// ErrNoClient reports a tool that needs backend access running without
// a request-scoped client bound.
var ErrNoClient = errors.New("backend credentials missing")

// WithClient returns a child context carrying the request's backend
// client. The binding lives only as long as the derived context, so a
// client never leaks past the request that created it.
func WithClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, ctxkey.APIClientKey{}, c)
}

// FromContext returns the backend client bound to ctx, or nil when no
// request-scoped client is present.
func FromContext(ctx context.Context) *Client {
	c, _ := ctx.Value(ctxkey.APIClientKey{}).(*Client)
	return c
}

// RequireClient returns the bound backend client or ErrNoClient. Tool
// handlers that cannot work without credentials call this first so the
// dispatcher reports the failure instead of the tool crashing.
func RequireClient(ctx context.Context) (*Client, error) {
	c := FromContext(ctx)
	if c == nil {
		return nil, ErrNoClient
	}
	return c, nil
}
