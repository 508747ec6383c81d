package transport

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	KindMemory    = "memory"
	KindWebSocket = "websocket"
)

// FactoryBuilder builds the frame factory of a bridge kind from its config.
// A nil factory means in-memory child windows.
type FactoryBuilder func(config map[string]any) (FrameFactory, error)

// Registry maps bridge kinds to frame factory builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]FactoryBuilder
}

func NewRegistry() *Registry {
	return &Registry{builders: map[string]FactoryBuilder{}}
}

func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.Register(KindMemory, func(map[string]any) (FrameFactory, error) {
		return nil, nil
	})
	return registry
}

func (r *Registry) Register(kind string, builder FactoryBuilder) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("transport: bridge kind is required")
	}
	if builder == nil {
		return fmt.Errorf("transport: factory builder is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[kind]; exists {
		return fmt.Errorf("transport: bridge kind %q already registered", kind)
	}
	r.builders[kind] = builder
	return nil
}

func (r *Registry) Build(kind string, config map[string]any) (FrameFactory, error) {
	if r == nil {
		return nil, fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		kind = KindMemory
	}

	r.mu.RLock()
	builder := r.builders[kind]
	r.mu.RUnlock()
	if builder == nil {
		return nil, fmt.Errorf("transport: bridge kind %q not registered", kind)
	}
	return builder(cloneMap(config))
}

func (r *Registry) Has(kind string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[normalizeKind(kind)]
	return ok
}

func (r *Registry) Kinds() []string {
	if r == nil {
		return []string{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.builders))
	for kind := range r.builders {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func normalizeKind(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}

func cloneMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}
