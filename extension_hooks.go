package xfc

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-xfc/consumer"
	"github.com/goliatone/go-xfc/provider"
	"github.com/goliatone/go-xfc/rpc"
)

// Side names the agent a method pack is registered on.
type Side string

const (
	SideProvider Side = "provider"
	SideConsumer Side = "consumer"
)

// MethodPack is a named group of custom RPC methods.
type MethodPack struct {
	Name    string
	Side    Side
	Methods map[string]rpc.Handler
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	packs   map[string]MethodPack
	owners  map[Side]map[string]string
	bundles map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		packs: map[string]MethodPack{},
		owners: map[Side]map[string]string{
			SideProvider: {},
			SideConsumer: {},
		},
		bundles: map[string]CommandQueryBundleFactory{},
	}
}

// RegisterMethodPack adds a pack. Packs may not shadow built-in methods or
// methods of another pack on the same side.
func (h *ExtensionHooks) RegisterMethodPack(pack MethodPack) error {
	if h == nil {
		return fmt.Errorf("xfc: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("xfc: method pack name is required")
	}
	if pack.Side != SideProvider && pack.Side != SideConsumer {
		return fmt.Errorf("xfc: method pack %q has unknown side %q", name, pack.Side)
	}
	if len(pack.Methods) == 0 {
		return fmt.Errorf("xfc: method pack %q has no methods", name)
	}

	normalized := MethodPack{Name: name, Side: pack.Side, Methods: make(map[string]rpc.Handler, len(pack.Methods))}
	for method, handler := range pack.Methods {
		method = strings.TrimSpace(method)
		if method == "" || handler == nil {
			return fmt.Errorf("xfc: method pack %q contains an empty method", name)
		}
		if isBuiltin(pack.Side, method) {
			return fmt.Errorf("xfc: method pack %q cannot replace built-in %q", name, method)
		}
		normalized.Methods[method] = handler
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.packs[name]; exists {
		return fmt.Errorf("xfc: method pack %q already registered", name)
	}
	owners := h.owners[pack.Side]
	for method := range normalized.Methods {
		if owner, taken := owners[method]; taken {
			return fmt.Errorf("xfc: method %q of pack %q already provided by %q", method, name, owner)
		}
	}
	for method := range normalized.Methods {
		owners[method] = name
	}
	h.packs[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(name string, factory CommandQueryBundleFactory) error {
	if h == nil {
		return fmt.Errorf("xfc: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("xfc: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("xfc: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("xfc: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

func (h *ExtensionHooks) ProviderMethods() map[string]rpc.Handler {
	return h.methods(SideProvider)
}

func (h *ExtensionHooks) ConsumerMethods() map[string]rpc.Handler {
	return h.methods(SideConsumer)
}

func (h *ExtensionHooks) methods(side Side) map[string]rpc.Handler {
	out := map[string]rpc.Handler{}
	if h == nil {
		return out
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, pack := range h.packs {
		if pack.Side != side {
			continue
		}
		for method, handler := range pack.Methods {
			out[method] = handler
		}
	}
	return out
}

// MethodPacks lists packs by name.
func (h *ExtensionHooks) MethodPacks() []MethodPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]MethodPack, 0, len(h.packs))
	for _, name := range sortedKeys(h.packs) {
		pack := h.packs[name]
		methods := make(map[string]rpc.Handler, len(pack.Methods))
		for method, handler := range pack.Methods {
			methods[method] = handler
		}
		out = append(out, MethodPack{Name: pack.Name, Side: pack.Side, Methods: methods})
	}
	return out
}

func (h *ExtensionHooks) BuildCommandQueryBundles(service CommandQueryService) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("xfc: command/query service is required")
	}

	h.mu.RLock()
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(factories))
	for _, name := range sortedKeys(factories) {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedKeys(h.bundles)
}

func isBuiltin(side Side, method string) bool {
	if side == SideConsumer {
		return consumer.IsBuiltin(method)
	}
	return method == provider.MethodResize || method == provider.MethodEvent
}
