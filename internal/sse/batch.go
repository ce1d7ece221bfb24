package sse

import (
	"encoding/json"
	"math"
	"sort"
)

// Event names emitted on streaming responses.
const (
	EventConnected     = "connected"
	EventHeartbeat     = "heartbeat"
	EventMCPResponse   = "mcp_response"
	EventToolStarted   = "tool_started"
	EventPartialResult = "partial_result"
	EventToolResult    = "tool_result"
	EventToolCompleted = "tool_completed"
	EventToolError     = "tool_error"
)

// Batch sizes for progressive result delivery.
const (
	// FlatBatchSize chunks top-level result lists.
	FlatBatchSize = 10
	// NestedBatchSize chunks recognized nested lists inside result maps.
	NestedBatchSize = 5
)

// nestedBatchKeys are the map fields whose list values stream in
// NestedBatchSize chunks when long enough. Order fixes the emission
// order of batched keys.
var nestedBatchKeys = []string{"anomalies", "incidents", "deployments", "traces"}

// Progress annotates one batch with its position in the full result.
type Progress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Chunk is one pending event of a streamed tool result.
type Chunk struct {
	Event string
	Data  any
}

// Chunks splits a tool result into the events to stream, applying the
// batching policy:
//
//   - a flat list longer than FlatBatchSize streams in partial_result
//     batches of FlatBatchSize with cumulative progress
//   - a map containing recognized nested lists longer than
//     NestedBatchSize streams those lists in batches of NestedBatchSize,
//     and every other key as its own tool_result event
//   - anything else is a single tool_result carrying the whole value
//
// Batching only paces delivery; it never alters the result data.
func Chunks(value any) []Chunk {
	v := normalize(value)

	if list, ok := v.([]any); ok && len(list) > FlatBatchSize {
		return listChunks("", list, FlatBatchSize)
	}

	if m, ok := v.(map[string]any); ok {
		if chunks := nestedChunks(m); chunks != nil {
			return chunks
		}
	}

	return []Chunk{{Event: EventToolResult, Data: v}}
}

// nestedChunks applies the per-key batching policy to a result map. It
// returns nil when no recognized key is long enough to batch, in which
// case the whole map streams as one event.
func nestedChunks(m map[string]any) []Chunk {
	batched := make(map[string]bool)
	var chunks []Chunk

	for _, key := range nestedBatchKeys {
		list, ok := m[key].([]any)
		if !ok || len(list) <= NestedBatchSize {
			continue
		}
		batched[key] = true
		chunks = append(chunks, listChunks(key, list, NestedBatchSize)...)
	}
	if len(batched) == 0 {
		return nil
	}

	rest := make([]string, 0, len(m))
	for key := range m {
		if !batched[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		chunks = append(chunks, Chunk{
			Event: EventToolResult,
			Data:  map[string]any{"key": key, "data": m[key]},
		})
	}
	return chunks
}

// listChunks splits list into partial_result batches annotated with
// cumulative progress. A non-empty key labels nested-list batches.
func listChunks(key string, list []any, size int) []Chunk {
	total := len(list)
	chunks := make([]Chunk, 0, (total+size-1)/size)

	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		data := map[string]any{
			"items":    list[start:end],
			"progress": progressAt(end, total),
		}
		if key != "" {
			data["key"] = key
		}
		chunks = append(chunks, Chunk{Event: EventPartialResult, Data: data})
	}
	return chunks
}

// progressAt reports cumulative delivery progress with the percentage
// rounded to one decimal place.
func progressAt(current, total int) Progress {
	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(current)/float64(total)*1000) / 10
	}
	return Progress{Current: current, Total: total, Percentage: pct}
}

// normalize round-trips value through JSON so the batching policy sees
// the same generic shape ([]any, map[string]any) the client will,
// regardless of the tool's native return types.
func normalize(value any) any {
	switch value.(type) {
	case nil, []any, map[string]any:
		return value
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return value
	}
	return v
}
