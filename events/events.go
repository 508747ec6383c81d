// Package events is the in-process lifecycle bus shared by provider and
// consumer agents.
package events

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-xfc/core"
)

const Namespace = "xfc"

const (
	Authorized        = "xfc.authorized"
	Error             = "xfc.error"
	Fullscreen        = "xfc.fullscreen"
	Launched          = "xfc.launched"
	Mounted           = "xfc.mounted"
	ProviderHTTPError = "xfc.provider.httpError"
	Ready             = "xfc.ready"
	Unload            = "xfc.unload"
	Unmounted         = "xfc.unmounted"
)

// Catalog lists the lifecycle event names in a stable order.
func Catalog() []string {
	return []string{
		Authorized,
		Error,
		Fullscreen,
		Launched,
		Mounted,
		ProviderHTTPError,
		Ready,
		Unload,
		Unmounted,
	}
}

func IsLifecycle(name string) bool {
	for _, candidate := range Catalog() {
		if candidate == name {
			return true
		}
	}
	return false
}

// AuthorizedDetail is carried by the authorized notification and event.
type AuthorizedDetail struct {
	URL     string         `json:"url"`
	Options map[string]any `json:"options"`
}

type ErrorDetail struct {
	Err      error
	TextCode string
}

type HTTPErrorDetail map[string]any

type Event struct {
	Name   string
	Detail any
}

type Handler func(ctx context.Context, event Event)

type subscription struct {
	id      int
	handler Handler
}

// Bus delivers events synchronously to subscribers in registration order.
// A panicking handler is reported and does not stop delivery.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string][]subscription
	wildcard []subscription
	reporter core.ErrorReporter
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]subscription{}}
}

func (b *Bus) WithErrorReporter(reporter core.ErrorReporter) *Bus {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	b.reporter = reporter
	b.mu.Unlock()
	return b
}

// On subscribes handler to name and returns the unsubscribe func.
func (b *Bus) On(name string, handler Handler) func() {
	name = strings.TrimSpace(name)
	if b == nil || handler == nil || name == "" {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[name] = append(b.handlers[name], subscription{id: id, handler: handler})
	return func() { b.off(name, id) }
}

// OnAny subscribes handler to every event.
func (b *Bus) OnAny(handler Handler) func() {
	if b == nil || handler == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.wildcard = append(b.wildcard, subscription{id: id, handler: handler})
	return func() { b.off("", id) }
}

func (b *Bus) Emit(ctx context.Context, name string, detail any) {
	if b == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event := Event{Name: name, Detail: detail}
	for _, sub := range b.subscribers(name) {
		b.deliver(ctx, sub.handler, event)
	}
}

func (b *Bus) HasListeners(name string) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name]) > 0 || len(b.wildcard) > 0
}

func (b *Bus) deliver(ctx context.Context, handler Handler, event Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			b.mu.RLock()
			reporter := b.reporter
			b.mu.RUnlock()
			if reporter != nil {
				reporter.ReportUncaught(ctx, fmt.Errorf("events: handler for %q panicked: %v", event.Name, recovered))
			}
		}
	}()
	handler(ctx, event)
}

func (b *Bus) subscribers(name string) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]subscription, 0, len(b.handlers[name])+len(b.wildcard))
	out = append(out, b.handlers[name]...)
	out = append(out, b.wildcard...)
	return out
}

func (b *Bus) off(name string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == "" {
		b.wildcard = removeSubscription(b.wildcard, id)
		return
	}
	b.handlers[name] = removeSubscription(b.handlers[name], id)
	if len(b.handlers[name]) == 0 {
		delete(b.handlers, name)
	}
}

func removeSubscription(items []subscription, id int) []subscription {
	out := make([]subscription, 0, len(items))
	for _, item := range items {
		if item.id != id {
			out = append(out, item)
		}
	}
	return out
}

// Subscribe registers a handler that only sees details of type T. Events
// whose detail has another type are skipped.
func Subscribe[T any](bus *Bus, name string, handler func(ctx context.Context, detail T)) func() {
	if handler == nil {
		return func() {}
	}
	return bus.On(name, func(ctx context.Context, event Event) {
		detail, ok := event.Detail.(T)
		if !ok {
			return
		}
		handler(ctx, detail)
	})
}
