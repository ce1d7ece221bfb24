package ratelimit

// Limiter is the interface for per-client admission control.
//
// Implementations count requests in a sliding window per key and escalate
// to a timed lockout once the limit is exceeded. The lookup-then-update
// for one key must be atomic: two concurrent requests from the same
// client must not both slip through at the limit boundary.
//
// The interface is storage-agnostic; the in-memory implementation lives
// in the memory adapter package.
type Limiter interface {
	// Allow checks and records a request for the given key.
	// It returns false when the key is over its window limit or inside
	// a lockout period. Allowed requests are recorded atomically with
	// the check.
	Allow(key string) bool
}
