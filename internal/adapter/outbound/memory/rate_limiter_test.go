// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// fakeClock drives the limiter's time source in tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(max int) (*SlidingWindowLimiter, *fakeClock) {
	clock := newFakeClock()
	l := NewSlidingWindowLimiter(max)
	l.now = clock.Now
	return l, clock
}

func TestSlidingWindowLimiter_AllowsUpToLimit(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(5)

	for i := 0; i < 5; i++ {
		if !l.Allow("client-a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("client-a") {
		t.Error("request over the limit should be rejected")
	}
}

func TestSlidingWindowLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(2)

	l.Allow("client-a")
	l.Allow("client-a")
	if l.Allow("client-a") {
		t.Error("client-a should be over limit")
	}
	if !l.Allow("client-b") {
		t.Error("client-b should be unaffected by client-a's limit")
	}
}

func TestSlidingWindowLimiter_LockoutIsFlat60Seconds(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(3)

	for i := 0; i < 3; i++ {
		l.Allow("client-a")
	}
	// The rejecting request starts the lockout clock.
	clock.Advance(30 * time.Second)
	if l.Allow("client-a") {
		t.Fatal("4th request in window should be rejected")
	}

	// 59s after the rejection, still blocked, even though the original
	// window entries have aged out.
	clock.Advance(59 * time.Second)
	if l.Allow("client-a") {
		t.Error("client should still be blocked inside the lockout")
	}

	// Past the lockout deadline, requests are admitted again.
	clock.Advance(2 * time.Second)
	if !l.Allow("client-a") {
		t.Error("client should be admitted after the lockout expires")
	}
}

func TestSlidingWindowLimiter_WindowSlides(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(2)

	l.Allow("client-a")
	l.Allow("client-a")

	// 61 seconds later the old timestamps fall outside the window.
	clock.Advance(61 * time.Second)
	if !l.Allow("client-a") {
		t.Error("request after window expiry should be allowed")
	}
}

func TestSlidingWindowLimiter_BlockedChecksDoNotRecord(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(2)

	l.Allow("client-a")
	l.Allow("client-a")
	if l.Allow("client-a") {
		t.Fatal("3rd request should trigger the lockout")
	}

	// Hammering while blocked must not extend the lockout.
	for i := 0; i < 10; i++ {
		clock.Advance(5 * time.Second)
		l.Allow("client-a")
	}

	clock.Advance(11 * time.Second) // 61s total since the block
	if !l.Allow("client-a") {
		t.Error("lockout must expire 60s after the rejecting request, regardless of churn")
	}
}

func TestSlidingWindowLimiter_ConcurrentBoundary(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("client-a") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Check-then-record is atomic per key: exactly the limit slips through.
	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly 50", allowed)
	}
}

func TestSlidingWindowLimiter_Cleanup(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	l := NewSlidingWindowLimiterWithConfig(10, 10*time.Millisecond, time.Hour)
	l.now = clock.Now

	l.Allow("stale-client")
	l.Allow("fresh-client")
	if l.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", l.Size())
	}

	// Age out only the stale client.
	clock.Advance(2 * time.Hour)
	l.Allow("fresh-client")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.StartCleanup(ctx)

	deadline := time.After(2 * time.Second)
	for l.Size() > 1 {
		select {
		case <-deadline:
			t.Fatalf("cleanup did not prune stale entry, Size() = %d", l.Size())
		case <-time.After(20 * time.Millisecond):
		}
	}

	l.Stop()
	l.Stop() // safe to call twice
}
