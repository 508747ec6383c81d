package transport

import (
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/dom"
	"github.com/goliatone/go-xfc/origin"
)

// Target is something a message can be posted to.
type Target interface {
	PostMessage(data []byte, targetOrigin string) error
}

// Event is a delivered message. Source is the receiving window's handle on
// the sender, so it compares equal to Parent() or Handle(w) for the same
// sender.
type Event struct {
	Data   []byte
	Origin string
	Source Target
}

type Listener func(Event)

// ForwardFunc receives messages posted to a remote window.
type ForwardFunc func(from *Window, data []byte, targetOrigin string) error

// FrameFactory opens the content window of an iframe.
type FrameFactory func(parent *Window, src string) (*Window, error)

type Option func(*Window)

func WithParent(parent *Window) Option {
	return func(w *Window) { w.parent = parent }
}

func WithDocument(doc *dom.Document) Option {
	return func(w *Window) {
		if doc != nil {
			w.doc = doc
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(w *Window) { w.logger = glog.Ensure(logger) }
}

// WithOnClose registers fn to run once when the window closes.
func WithOnClose(fn func()) Option {
	return func(w *Window) {
		if fn != nil {
			w.closers = append(w.closers, fn)
		}
	}
}

// WithFrameFactory replaces in-memory child windows for iframes loaded in
// this window.
func WithFrameFactory(factory FrameFactory) Option {
	return func(w *Window) { w.factory = factory }
}

// Window is a browsing context. Messages posted to a local window are
// dispatched to its listeners on a single goroutine, in arrival order.
// Messages posted to a remote window are handed to its ForwardFunc.
type Window struct {
	mu        sync.RWMutex
	href      string
	parent    *Window
	doc       *dom.Document
	logger    core.Logger
	forward   ForwardFunc
	factory   FrameFactory
	boot      func(*Window)
	nextID    int
	listeners map[int]Listener
	resizers  map[int]func()
	unloaders map[int]func()
	handles   map[*Window]*Handle
	frames    map[*dom.Element]*Window
	closers   []func()
	queue     []delivery
	wake      chan struct{}
	done      chan struct{}
	closed    bool
}

type delivery struct {
	from         *Window
	data         []byte
	targetOrigin string
}

func NewWindow(href string, opts ...Option) *Window {
	w := newWindow(href, opts...)
	go w.loop()
	return w
}

// NewRemoteWindow returns a proxy for a browsing context living in another
// process. Posting to it calls forward.
func NewRemoteWindow(href string, forward ForwardFunc, opts ...Option) *Window {
	w := newWindow(href, opts...)
	w.forward = forward
	return w
}

func newWindow(href string, opts ...Option) *Window {
	w := &Window{
		href:      strings.TrimSpace(href),
		doc:       dom.NewDocument(),
		logger:    glog.Nop(),
		listeners: map[int]Listener{},
		resizers:  map[int]func(){},
		unloaders: map[int]func(){},
		handles:   map[*Window]*Handle{},
		frames:    map[*dom.Element]*Window{},
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

func (w *Window) Location() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.href
}

func (w *Window) Origin() string {
	return origin.FromURL(w.Location())
}

func (w *Window) Document() *dom.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.doc
}

func (w *Window) Embedded() bool {
	return w.parent != nil
}

// Parent returns this window's handle on its parent, or nil at top level.
func (w *Window) Parent() Target {
	if w.parent == nil {
		return nil
	}
	return w.Handle(w.parent)
}

func (w *Window) IsRemote() bool {
	return w.forward != nil
}

// Handle returns the stable handle this window uses to post to target.
func (w *Window) Handle(target *Window) *Handle {
	if target == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	handle, ok := w.handles[target]
	if !ok {
		handle = &Handle{from: w, to: target}
		w.handles[target] = handle
	}
	return handle
}

// Listen registers a message listener. The returned func removes it.
func (w *Window) Listen(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id := w.nextID
	w.listeners[id] = listener
	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

func (w *Window) OnResize(fn func()) func() {
	return w.addHook(hookResize, fn)
}

func (w *Window) OnBeforeUnload(fn func()) func() {
	return w.addHook(hookBeforeUnload, fn)
}

// DispatchResize notifies resize listeners, as a viewport change would.
func (w *Window) DispatchResize() {
	for _, fn := range w.hooks(hookResize) {
		fn()
	}
}

// OnFrameLoad registers the script that runs in every in-memory child
// window loaded by this window, and again after each navigation.
func (w *Window) OnFrameLoad(boot func(*Window)) {
	w.mu.Lock()
	w.boot = boot
	w.mu.Unlock()
}

// Navigate runs beforeunload listeners, then replaces the document and drops
// every listener of the previous page before booting the new one.
func (w *Window) Navigate(href string) {
	for _, fn := range w.hooks(hookBeforeUnload) {
		fn()
	}
	w.mu.Lock()
	w.href = strings.TrimSpace(href)
	w.doc = dom.NewDocument()
	w.listeners = map[int]Listener{}
	w.resizers = map[int]func(){}
	w.unloaders = map[int]func(){}
	boot := w.boot
	w.mu.Unlock()
	if boot != nil {
		boot(w)
	}
}

// LoadFrame opens src in the content window of iframe. An in-memory child is
// navigated in place; a remote child is closed and reopened.
func (w *Window) LoadFrame(iframe *dom.Element, src string) (*Window, error) {
	if iframe == nil {
		return nil, transportError("transport: iframe is required", goerrors.CategoryBadInput, nil)
	}
	iframe.SetAttribute("src", src)

	w.mu.RLock()
	existing := w.frames[iframe]
	factory := w.factory
	boot := w.boot
	w.mu.RUnlock()

	if existing != nil && !existing.IsRemote() {
		existing.Navigate(src)
		return existing, nil
	}
	if existing != nil {
		existing.Close()
	}

	var child *Window
	if factory != nil {
		opened, err := factory(w, src)
		if err != nil {
			return nil, transportWrapError(err, goerrors.CategoryInternal, "transport: open frame failed", map[string]any{"src": src})
		}
		child = opened
	} else {
		child = NewWindow(src, WithParent(w), WithLogger(w.logger))
		child.OnFrameLoad(boot)
	}

	w.mu.Lock()
	w.frames[iframe] = child
	w.mu.Unlock()

	if factory == nil && boot != nil {
		boot(child)
	}
	return child, nil
}

func (w *Window) FrameWindow(iframe *dom.Element) (*Window, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	child, ok := w.frames[iframe]
	return child, ok
}

// UnloadFrame closes the content window of iframe.
func (w *Window) UnloadFrame(iframe *dom.Element) {
	w.mu.Lock()
	child := w.frames[iframe]
	delete(w.frames, iframe)
	w.mu.Unlock()
	if child != nil {
		child.Close()
	}
}

// Close stops delivery. Queued and future messages are dropped.
func (w *Window) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.queue = nil
	frames := w.frames
	w.frames = map[*dom.Element]*Window{}
	closers := w.closers
	w.closers = nil
	close(w.done)
	w.mu.Unlock()
	for _, child := range frames {
		child.Close()
	}
	for _, fn := range closers {
		fn()
	}
}

// Done is closed when the window closes.
func (w *Window) Done() <-chan struct{} {
	return w.done
}

func (w *Window) Closed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed
}

func (w *Window) deliver(from *Window, data []byte, targetOrigin string) error {
	switch {
	case strings.TrimSpace(targetOrigin) == "":
		return transportError("transport: target origin is required", goerrors.CategoryBadInput, nil)
	case origin.IsPattern(targetOrigin):
		return transportError("transport: invalid target origin", goerrors.CategoryBadInput, map[string]any{
			"target_origin": targetOrigin,
		})
	case targetOrigin == "/":
		targetOrigin = from.Origin()
	}
	payload := append([]byte(nil), data...)

	if w.forward != nil {
		if w.Closed() {
			return nil
		}
		return w.forward(from, payload, targetOrigin)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.queue = append(w.queue, delivery{from: from, data: payload, targetOrigin: targetOrigin})
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

func (w *Window) loop() {
	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
		}
		for {
			w.mu.Lock()
			if w.closed || len(w.queue) == 0 {
				w.mu.Unlock()
				break
			}
			next := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()
			w.dispatch(next)
		}
	}
}

func (w *Window) dispatch(d delivery) {
	if d.targetOrigin != origin.Wildcard && d.targetOrigin != w.Origin() {
		w.logger.Debug("transport: message dropped, target origin mismatch",
			"target_origin", d.targetOrigin, "origin", w.Origin())
		return
	}
	event := Event{Data: d.data, Origin: d.from.Origin(), Source: w.Handle(d.from)}
	w.mu.RLock()
	listeners := sortedValues(w.listeners)
	w.mu.RUnlock()
	for _, listener := range listeners {
		listener(event)
	}
}

type hookKind int

const (
	hookResize hookKind = iota
	hookBeforeUnload
)

func (w *Window) hookMap(kind hookKind) map[int]func() {
	if kind == hookResize {
		return w.resizers
	}
	return w.unloaders
}

func (w *Window) addHook(kind hookKind, fn func()) func() {
	if fn == nil {
		return func() {}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id := w.nextID
	hooks := w.hookMap(kind)
	hooks[id] = fn
	return func() {
		w.mu.Lock()
		delete(hooks, id)
		w.mu.Unlock()
	}
}

func (w *Window) hooks(kind hookKind) []func() {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return sortedValues(w.hookMap(kind))
}

// Handle posts from one window to another.
type Handle struct {
	from *Window
	to   *Window
}

func (h *Handle) PostMessage(data []byte, targetOrigin string) error {
	if h == nil || h.to == nil {
		return transportError("transport: target window is nil", goerrors.CategoryBadInput, nil)
	}
	return h.to.deliver(h.from, data, targetOrigin)
}

// Window returns the window messages are posted to.
func (h *Handle) Window() *Window {
	if h == nil {
		return nil
	}
	return h.to
}

func sortedValues[T any](items map[int]T) []T {
	ids := make([]int, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, items[id])
	}
	return out
}
