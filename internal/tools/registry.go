// Package tools provides the tool catalog and executor for the
// assistant's function-calling loop.
package tools

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/openhouse-crm/assistant/internal/domain"
)

// HandlerFunc executes one tool call. The acting user is carried in the
// context (see WithUser). Returned payloads must be JSON-serializable.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Entry pairs a tool definition with its handler.
type Entry struct {
	Definition domain.ToolDefinition
	Handler    HandlerFunc
}

// Registry is a static catalog mapping tool names to entries. Entries
// are registered at startup and read-only afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a new tool entry. Names must be unique.
func (r *Registry) Register(def domain.ToolDefinition, handler HandlerFunc) error {
	if def.Name == "" {
		return errors.New("tool name is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return errors.Errorf("tool %s already registered", def.Name)
	}
	r.entries[def.Name] = Entry{Definition: def, Handler: handler}
	return nil
}

// MustRegister registers a tool entry or panics.
func (r *Registry) MustRegister(def domain.ToolDefinition, handler HandlerFunc) {
	if err := r.Register(def, handler); err != nil {
		panic(err)
	}
}

// Get fetches a tool entry by name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	return entry, ok
}

// Definitions returns the full catalog, sorted by name so the payload
// sent to the provider is deterministic.
func (r *Registry) Definitions() []domain.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]domain.ToolDefinition, 0, len(r.entries))
	for _, entry := range r.entries {
		defs = append(defs, entry.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
