package consumer

import (
	"context"
	"sort"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/dom"
	"github.com/goliatone/go-xfc/events"
	"github.com/goliatone/go-xfc/transport"
)

// Handlers maps event names to handlers attached to every mounted frame.
type Handlers map[string][]events.Handler

// Consumer mounts frames into one host window and keeps track of them.
type Consumer struct {
	host     *transport.Window
	handlers Handlers
	defaults []Option

	mu     sync.RWMutex
	frames map[string]*Frame
	order  map[string]int
	seq    int
}

// NewConsumer applies handlers to each frame it mounts. defaults are applied
// before the per-mount options.
func NewConsumer(host *transport.Window, handlers Handlers, defaults ...Option) *Consumer {
	copied := Handlers{}
	for name, list := range handlers {
		copied[name] = append([]events.Handler(nil), list...)
	}
	return &Consumer{
		host:     host,
		handlers: copied,
		defaults: append([]Option(nil), defaults...),
		frames:   map[string]*Frame{},
		order:    map[string]int{},
	}
}

func (c *Consumer) Host() *transport.Window { return c.host }

// Mount creates a frame, attaches the global handlers and mounts it. The
// frame leaves the registry when it is unmounted.
func (c *Consumer) Mount(ctx context.Context, container *dom.Element, source string, opts ...Option) (*Frame, error) {
	all := append(append([]Option(nil), c.defaults...), opts...)
	frame := New(c.host, container, source, all...)
	for name, list := range c.handlers {
		for _, handler := range list {
			if handler != nil {
				frame.On(name, handler)
			}
		}
	}

	c.mu.Lock()
	c.seq++
	c.frames[frame.ID()] = frame
	c.order[frame.ID()] = c.seq
	c.mu.Unlock()
	frame.OnCleanup(func() { c.forget(frame.ID()) })

	if err := frame.Mount(ctx); err != nil {
		c.forget(frame.ID())
		return nil, err
	}
	return frame, nil
}

func (c *Consumer) Frame(id string) (*Frame, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	frame, ok := c.frames[id]
	return frame, ok
}

// Frames returns the mounted frames in mount order.
func (c *Consumer) Frames() []*Frame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Frame, 0, len(c.frames))
	for _, frame := range c.frames {
		out = append(out, frame)
	}
	sort.Slice(out, func(i, j int) bool {
		return c.order[out[i].ID()] < c.order[out[j].ID()]
	})
	return out
}

func (c *Consumer) Unmount(ctx context.Context, id string) error {
	frame, ok := c.Frame(id)
	if !ok {
		return core.NewError("consumer: frame not found", goerrors.CategoryNotFound, core.ErrorBadInput, map[string]any{"frame_id": id})
	}
	return frame.Unmount(ctx)
}

// Close unmounts every frame.
func (c *Consumer) Close(ctx context.Context) {
	for _, frame := range c.Frames() {
		_ = frame.Unmount(ctx)
	}
}

func (c *Consumer) forget(id string) {
	c.mu.Lock()
	delete(c.frames, id)
	delete(c.order, id)
	c.mu.Unlock()
}
