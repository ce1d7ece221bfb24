// Package tool holds the server-side tool registry. Tools are plain Go
// functions registered under a name with a JSON Schema describing their
// arguments; the protocol layer looks them up by name at call time.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
)

// Handler executes a tool call. The argument map is the decoded
// "arguments" object from the request; the returned value is serialized
// for the caller.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Descriptor describes one registered tool.
type Descriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Registry is a concurrency-safe name-to-tool table.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Descriptor)}
}

// Register adds or replaces a tool. It returns an error only for a
// descriptor with no name or no handler.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("tool registration requires a name")
	}
	if d.Handler == nil {
		return fmt.Errorf("tool %q registered without a handler", d.Name)
	}
	if len(d.InputSchema) == 0 {
		d.InputSchema = emptyObjectSchema()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[d.Name] = d
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// RegisterTyped registers a tool whose arguments decode into A. The
// input schema is reflected from A's struct tags, and the handler
// receives the decoded struct instead of a raw map.
func RegisterTyped[A any](r *Registry, name, description string, fn func(ctx context.Context, args A) (any, error)) error {
	schema, err := ReflectSchema[A]()
	if err != nil {
		return fmt.Errorf("reflecting schema for tool %q: %w", name, err)
	}
	return r.Register(Descriptor{
		Name:        name,
		Description: description,
		InputSchema: schema,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			var typed A
			if args != nil {
				raw, err := json.Marshal(args)
				if err != nil {
					return nil, fmt.Errorf("encoding arguments: %w", err)
				}
				if err := json.Unmarshal(raw, &typed); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
			}
			return fn(ctx, typed)
		},
	})
}

// ReflectSchema produces an inline JSON Schema for A, with the struct
// expanded at the schema root.
func ReflectSchema[A any]() (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := reflector.Reflect(new(A))
	if s == nil || s.Type != "object" {
		return emptyObjectSchema(), nil
	}
	s.Version = ""
	return json.Marshal(s)
}

func emptyObjectSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
