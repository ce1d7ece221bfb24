// Package ratelimit provides rate limiting domain types.
package ratelimit

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ClientIdentity identifies a caller for rate limiting purposes.
// Derived per request from the resolved client IP and the User-Agent
// header; never persisted beyond process memory.
type ClientIdentity struct {
	IP        string
	UserAgent string
}

// NewClientIdentity builds a ClientIdentity, substituting "unknown" for
// a missing user agent.
func NewClientIdentity(ip, userAgent string) ClientIdentity {
	if userAgent == "" {
		userAgent = "unknown"
	}
	return ClientIdentity{IP: ip, UserAgent: userAgent}
}

// Key returns the limiter table key for this identity.
// The user agent is folded through xxhash so hostile clients cannot
// inflate per-entry memory with arbitrarily long header values.
func (c ClientIdentity) Key() string {
	digest := xxhash.New()
	_, _ = digest.WriteString(c.UserAgent)
	return fmt.Sprintf("client:%s:%016x", c.IP, digest.Sum64())
}
