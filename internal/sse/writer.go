package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrStreamingUnsupported is returned when the underlying response
// writer cannot flush, which SSE requires.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// EventWriter serializes named events onto one SSE response. Writes
// are mutex-guarded so heartbeats and result events from different
// goroutines never interleave mid-frame.
type EventWriter struct {
	mu sync.Mutex
	w  http.ResponseWriter
	f  http.Flusher
}

// NewEventWriter prepares w for event streaming: it sets the SSE
// response headers and verifies the writer can flush.
func NewEventWriter(w http.ResponseWriter) (*EventWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Disable proxy buffering so events reach the client immediately.
	h.Set("X-Accel-Buffering", "no")

	return &EventWriter{w: w, f: f}, nil
}

// Send emits one event frame with a JSON-encoded data payload and
// flushes it to the client.
func (ew *EventWriter) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	return ew.SendRaw(event, payload)
}

// SendRaw emits one event frame with pre-encoded data.
func (ew *EventWriter) SendRaw(event string, data []byte) error {
	ew.mu.Lock()
	defer ew.mu.Unlock()

	if _, err := fmt.Fprintf(ew.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	ew.f.Flush()
	return nil
}
