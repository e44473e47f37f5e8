// Package registry provides an explicitly constructed name registry for
// tools and backend clients. It replaces global singleton registries: build
// one, register what you need, and inject it into the node factories that
// perform name-based lookup.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/espalier/pkg/ports"
)

// ToolFunc defines the signature for a tool implementation.
// It receives a context and a map of arguments, and returns a result or error.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// Registry manages available tools and backend clients.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]ToolFunc
	clients map[string]ports.SessionClient
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		tools:   make(map[string]ToolFunc),
		clients: make(map[string]ports.SessionClient),
	}
}

// RegisterTool adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) RegisterTool(name string, fn ToolFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
}

// Tool looks up a tool by name.
func (r *Registry) Tool(name string) (ToolFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return fn, nil
}

// ExecuteTool looks up a tool by name and executes it.
func (r *Registry) ExecuteTool(ctx context.Context, name string, args map[string]any) (any, error) {
	fn, err := r.Tool(name)
	if err != nil {
		return nil, err
	}
	return fn(ctx, args)
}

// RegisterClient adds a backend client to the registry.
func (r *Registry) RegisterClient(name string, client ports.SessionClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
}

// Client looks up a backend client by name.
func (r *Registry) Client(name string) (ports.SessionClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("client not found: %s", name)
	}
	return client, nil
}
