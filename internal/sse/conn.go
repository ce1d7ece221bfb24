// Package sse implements the server-sent-events engine: the tracked
// connection table, the event writer, and the batched result delivery
// policy used by the streaming endpoints.
package sse

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Connection is one tracked streaming connection.
type Connection struct {
	// ID combines a monotonic counter with the creation timestamp.
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`

	seq uint64
}

// Table tracks live streaming connections up to a configured maximum.
// Admitting a connection at the maximum evicts the single oldest entry
// by creation order.
type Table struct {
	mu     sync.Mutex
	conns  map[string]*Connection
	max    int
	seq    uint64
	now    func() time.Time
	logger *slog.Logger
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithTableLogger sets the table's logger.
func WithTableLogger(logger *slog.Logger) TableOption {
	return func(t *Table) {
		t.logger = logger
	}
}

// NewTable creates a connection table holding at most max entries.
func NewTable(max int, opts ...TableOption) *Table {
	if max < 1 {
		max = 1
	}
	t := &Table{
		conns:  make(map[string]*Connection),
		max:    max,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register admits a new connection, evicting the oldest entry first if
// the table is full. The returned snapshot is safe to read without the
// table lock.
func (t *Table) Register() Connection {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.conns) >= t.max {
		t.evictOldestLocked()
	}

	t.seq++
	now := t.now()
	conn := &Connection{
		ID:        fmt.Sprintf("conn_%d_%d", t.seq, now.UnixMilli()),
		CreatedAt: now,
		Active:    true,
		seq:       t.seq,
	}
	t.conns[conn.ID] = conn
	return *conn
}

// evictOldestLocked removes the single oldest connection by creation
// order. Caller holds t.mu.
func (t *Table) evictOldestLocked() {
	var oldest *Connection
	for _, c := range t.conns {
		if oldest == nil || c.seq < oldest.seq {
			oldest = c
		}
	}
	if oldest == nil {
		return
	}
	delete(t.conns, oldest.ID)
	t.logger.Info("evicted oldest streaming connection",
		"connection_id", oldest.ID,
		"created_at", oldest.CreatedAt,
	)
}

// Remove drops a connection from the table. Removing an already-absent
// id is a no-op, so every terminal path can call it unconditionally.
func (t *Table) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, id)
}

// MarkInactive flags a connection for termination without removing it.
// The owning stream loop observes the flag and shuts down.
func (t *Table) MarkInactive(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.conns[id]; ok {
		c.Active = false
	}
}

// IsActive reports whether the connection is still tracked and active.
// An evicted or removed connection reports false.
func (t *Table) IsActive(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[id]
	return ok && c.Active
}

// Size reports the number of tracked connections.
func (t *Table) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// Max reports the configured connection ceiling.
func (t *Table) Max() int {
	return t.max
}

// Snapshot lists all tracked connections in creation order.
func (t *Table) Snapshot() []Connection {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Connection, 0, len(t.conns))
	for _, c := range t.conns {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
