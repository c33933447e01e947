package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/helical-labs/medwatch/internal/core/ports/driven"
	"github.com/helical-labs/medwatch/internal/logger"
)

// Registry holds all available tools and provides lookup and dispatch.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}

	r.tools[tool.Name] = tool
	logger.Debug("tools: registered %s", tool.Name)
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static tool registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Signatures returns the signatures of all registered tools in name order,
// in the form the reasoning capability consumes.
func (r *Registry) Signatures() []driven.ToolSignature {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	sigs := make([]driven.ToolSignature, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]

		props := make(map[string]any, len(tool.Schema.Properties))
		for arg, schema := range tool.Schema.Properties {
			props[arg] = schema
		}

		sigs = append(sigs, driven.ToolSignature{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": props,
				"required":   tool.Schema.Required,
			},
		})
	}
	return sigs
}

// Execute dispatches a tool by name after validating required arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*Result, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}

	logger.Debug("tools: executing %s", name)
	return tool.Execute(ctx, args)
}
