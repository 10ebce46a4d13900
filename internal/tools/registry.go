package tools

import (
	"fmt"
	"sync"
)

// Registry holds the tool catalog. Tools are registered once at startup and
// the set is read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*Tool
	ordering []string // Preserve registration order for consistent tools/list
}

// Tool pairs a definition with its handler record
type Tool struct {
	Definition ToolDefinition
	Handler    Handler
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool definition and handler to the registry
func (r *Registry) Register(def ToolDefinition, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if !handler.valid() {
		return fmt.Errorf("handler for %s has no invocation", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}

	r.tools[def.Name] = &Tool{
		Definition: def,
		Handler:    handler,
	}
	r.ordering = append(r.ordering, def.Name)

	return nil
}

// MustRegister registers a tool or panics on error (for init-time registration)
func (r *Registry) MustRegister(def ToolDefinition, handler Handler) {
	if err := r.Register(def, handler); err != nil {
		panic(err)
	}
}

// List returns all registered tool descriptors (for tools/list response)
func (r *Registry) List() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]ToolDescriptor, 0, len(r.ordering))
	for _, name := range r.ordering {
		def := r.tools[name].Definition
		descriptors = append(descriptors, ToolDescriptor{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}

	return descriptors
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordering)
}

// Lookup resolves a tool by name
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}
