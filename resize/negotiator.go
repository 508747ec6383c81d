// Package resize computes the size of an embedded document and reports it to
// the embedding page whenever the layout may have changed.
package resize

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/dom"
)

// MethodResize is the notification carrying size updates.
const MethodResize = "resize"

const DefaultInterval = core.DefaultDebounceMS * time.Millisecond

// Config is pushed by the consumer through the resize method.
type Config struct {
	CustomCal               bool   `json:"customCal,omitempty"`
	AutoResizeWidth         bool   `json:"autoResizeWidth,omitempty"`
	HeightCalculationMethod string `json:"heightCalculationMethod,omitempty"`
	WidthCalculationMethod  string `json:"widthCalculationMethod,omitempty"`
	TargetSelectors         string `json:"targetSelectors,omitempty"`
}

// Notifier sends notifications to the consumer.
type Notifier interface {
	Notify(ctx context.Context, method string, params ...any) error
}

// Triggers are the signals that arm once configuration arrives.
type Triggers struct {
	ObserveMutations func(fn func()) func()
	OnWindowResize   func(fn func()) func()
}

type Option func(*Negotiator)

func WithInterval(interval time.Duration) Option {
	return func(n *Negotiator) {
		if interval > 0 {
			n.interval = interval
		}
	}
}

func WithTargetSelectors(selectors string) Option {
	return func(n *Negotiator) { n.selectors = strings.TrimSpace(selectors) }
}

func WithLogger(logger core.Logger) Option {
	return func(n *Negotiator) { n.logger = logger }
}

func WithTriggers(triggers Triggers) Option {
	return func(n *Negotiator) { n.triggers = triggers }
}

// Negotiator reports size changes. Nothing is reported until Configure has
// been called.
type Negotiator struct {
	notifier  Notifier
	measurer  Measurer
	selectors string
	interval  time.Duration
	triggers  Triggers
	logger    core.Logger

	mu        sync.Mutex
	config    *Config
	armed     bool
	cancels   []func()
	debounced func(func())
	closed    bool
}

func New(notifier Notifier, measurer Measurer, opts ...Option) *Negotiator {
	n := &Negotiator{
		notifier: notifier,
		measurer: measurer,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	n.logger = core.ResolveLogger("xfc.resize", nil, n.logger)
	n.debounced = debounce.New(n.interval)
	return n
}

// Configure replaces the stored config, reports the current size and arms
// the mutation and window-resize triggers on first use.
func (n *Negotiator) Configure(ctx context.Context, cfg Config) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.config = &cfg
	arm := !n.armed
	n.armed = true
	n.mu.Unlock()

	n.RequestResize(ctx)
	if arm {
		n.arm()
	}
}

// Config returns the stored config, or nil before Configure.
func (n *Negotiator) Config() *Config {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.config == nil {
		return nil
	}
	copied := *n.config
	return &copied
}

// RequestResize measures and reports immediately.
func (n *Negotiator) RequestResize(ctx context.Context) {
	cfg := n.Config()
	if cfg == nil || n.isClosed() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	switch {
	case cfg.CustomCal:
		err = n.notifier.Notify(ctx, MethodResize)
	case cfg.AutoResizeWidth:
		width, calcErr := CalculateWidth(cfg.WidthCalculationMethod, n.measurer.Width())
		n.logCalculation(calcErr)
		err = n.notifier.Notify(ctx, MethodResize, nil, fmt.Sprintf("%dpx", width))
	default:
		height, calcErr := CalculateHeight(cfg.HeightCalculationMethod, n.measurer.Height())
		n.logCalculation(calcErr)
		if selectors := joinSelectors(n.selectors, cfg.TargetSelectors); selectors != "" {
			height = maxOf(append(n.measurer.OffsetHeights(selectors), height)...)
		}
		err = n.notifier.Notify(ctx, MethodResize, fmt.Sprintf("%dpx", height))
	}
	if err != nil {
		n.logger.Warn("resize: notification not sent", "error", err, "text_code", core.TextCode(err))
	}
}

// WindowResized schedules a report after the quiet interval. Each call
// restarts the interval.
func (n *Negotiator) WindowResized() {
	if n.isClosed() {
		return
	}
	n.debounced(func() { n.RequestResize(context.Background()) })
}

// SubtreeMutated reports immediately.
func (n *Negotiator) SubtreeMutated() {
	n.RequestResize(context.Background())
}

// ImageLoaded reports when an image without explicit dimensions finishes
// loading.
func (n *Negotiator) ImageLoaded(el *dom.Element) {
	if el == nil || el.TagName() != "IMG" {
		return
	}
	if el.HasAttribute("height") || el.HasAttribute("width") {
		return
	}
	n.RequestResize(context.Background())
}

// Close disarms every trigger.
func (n *Negotiator) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	cancels := n.cancels
	n.cancels = nil
	n.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (n *Negotiator) arm() {
	cancels := []func(){}
	if n.triggers.ObserveMutations != nil {
		cancels = append(cancels, n.triggers.ObserveMutations(n.SubtreeMutated))
	}
	if n.triggers.OnWindowResize != nil {
		cancels = append(cancels, n.triggers.OnWindowResize(n.WindowResized))
	}
	n.mu.Lock()
	n.cancels = append(n.cancels, cancels...)
	n.mu.Unlock()
}

func (n *Negotiator) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func (n *Negotiator) logCalculation(err error) {
	if err != nil {
		n.logger.Error(err.Error())
	}
}

func joinSelectors(values ...string) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, ", ")
}
