// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/insightfinder/mcp-server-go/internal/domain/ratelimit"
)

// Window and lockout are fixed at one minute each: exceeding the limit
// inside the window escalates to a flat 60-second block.
const (
	rateWindow  = time.Minute
	rateLockout = time.Minute
)

// rateEntry tracks one client identity.
type rateEntry struct {
	// requests holds the timestamps of admitted requests inside the window.
	requests []time.Time

	// blockedUntil is the lockout deadline; zero when not blocked.
	blockedUntil time.Time

	// lastSeen supports idle-entry cleanup.
	lastSeen time.Time
}

// SlidingWindowLimiter implements ratelimit.Limiter with a per-key
// sliding 60-second window and a flat 60-second lockout on overflow.
// Thread-safe for concurrent access. Includes background cleanup to
// bound memory growth under client churn.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	max     int

	now func() time.Time

	stopChan        chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
	cleanupInterval time.Duration
	maxIdle         time.Duration
}

// NewSlidingWindowLimiter creates a limiter allowing maxPerMinute
// requests per key with default cleanup settings (interval 5 minutes,
// idle TTL 1 hour).
func NewSlidingWindowLimiter(maxPerMinute int) *SlidingWindowLimiter {
	return NewSlidingWindowLimiterWithConfig(maxPerMinute, 5*time.Minute, time.Hour)
}

// NewSlidingWindowLimiterWithConfig creates a limiter with custom cleanup settings.
func NewSlidingWindowLimiterWithConfig(maxPerMinute int, cleanupInterval, maxIdle time.Duration) *SlidingWindowLimiter {
	if maxPerMinute <= 0 {
		maxPerMinute = 1
	}
	return &SlidingWindowLimiter{
		entries:         make(map[string]*rateEntry),
		max:             maxPerMinute,
		now:             time.Now,
		stopChan:        make(chan struct{}),
		cleanupInterval: cleanupInterval,
		maxIdle:         maxIdle,
	}
}

// Allow checks and records a request for key.
//
// While a key is blocked, checks fail fast without touching the
// timestamp window. Otherwise timestamps older than the window are
// purged; if the window still holds max entries, the key is blocked for
// a flat lockout from this moment and the request is denied.
func (l *SlidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	entry, ok := l.entries[key]
	if !ok {
		entry = &rateEntry{}
		l.entries[key] = entry
	}
	entry.lastSeen = now

	if now.Before(entry.blockedUntil) {
		return false
	}

	// Purge timestamps outside the trailing window.
	cutoff := now.Add(-rateWindow)
	kept := entry.requests[:0]
	for _, ts := range entry.requests {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	entry.requests = kept

	if len(entry.requests) >= l.max {
		entry.blockedUntil = now.Add(rateLockout)
		slog.Warn("rate limit exceeded, client blocked",
			"key", key,
			"window_requests", len(entry.requests),
			"blocked_until", entry.blockedUntil)
		return false
	}

	entry.requests = append(entry.requests, now)
	return true
}

// StartCleanup starts the background cleanup goroutine.
// The goroutine periodically removes keys idle longer than maxIdle.
// It stops when ctx is cancelled or Stop() is called.
func (l *SlidingWindowLimiter) StartCleanup(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stopChan:
				return
			case <-ticker.C:
				l.cleanup()
			}
		}
	}()
}

// cleanup removes idle keys from the limiter table.
func (l *SlidingWindowLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.maxIdle)
	cleaned := 0

	for key, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) && l.now().After(entry.blockedUntil) {
			delete(l.entries, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		slog.Debug("rate limiter cleanup completed",
			"cleaned_keys", cleaned,
			"remaining_keys", len(l.entries))
	}
}

// Stop gracefully stops the cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (l *SlidingWindowLimiter) Stop() {
	l.once.Do(func() {
		close(l.stopChan)
	})
	l.wg.Wait()
}

// Size returns the current number of tracked keys.
// Useful for testing and monitoring memory usage.
func (l *SlidingWindowLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Compile-time interface verification.
var _ ratelimit.Limiter = (*SlidingWindowLimiter)(nil)
