package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/davenport-labs/spindle/internal/catalog"
)

// Registry manages tool registration and execution. It is the
// tool-execution transport the dispatcher calls into:
// (name, arguments) -> result | failure.
type Registry struct {
	tools       map[string]Tool
	order       []string
	mu          sync.RWMutex
	rateLimiter *RateLimiter // nil = no rate limiting
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// SetRateLimiter enables per-tool rate limiting.
func (r *Registry) SetRateLimiter(rl *RateLimiter) {
	r.rateLimiter = rl
}

// Register adds a tool to the registry. Registration order is preserved
// for catalog and prompt formatting.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[tool.Name()]; !ok {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tool names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Catalog derives the tool schema catalog supplied to the decision
// parser at run start.
func (r *Registry) Catalog() *catalog.Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]*catalog.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		schemas = append(schemas, &catalog.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Params:      t.Params(),
		})
	}
	return catalog.New(schemas...)
}

// Call runs a tool by name with the given arguments. This is the
// transport contract: the returned error marks a transport failure and
// is never allowed to escape the dispatcher as a panic or throw.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}

	if r.rateLimiter != nil {
		if err := r.rateLimiter.Allow(name); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	duration := time.Since(start)

	slog.Debug("tool executed",
		"tool", name,
		"duration_ms", duration.Milliseconds(),
		"is_error", err != nil,
	)

	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	if s, ok := result.(string); ok {
		result = ScrubCredentials(s)
	}
	return result, nil
}
