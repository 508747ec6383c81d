// Package consumer embeds provider applications in iframes and talks to them
// over the cross-frame RPC channel.
package consumer

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/dom"
	"github.com/goliatone/go-xfc/events"
	"github.com/goliatone/go-xfc/origin"
	"github.com/goliatone/go-xfc/provider"
	"github.com/goliatone/go-xfc/resize"
	"github.com/goliatone/go-xfc/rpc"
	"github.com/goliatone/go-xfc/transport"
)

// Wrapper statuses, mirrored in the data-status attribute.
const (
	StatusCreated    = "created"
	StatusMounted    = "mounted"
	StatusLaunched   = "launched"
	StatusAuthorized = "authorized"
	StatusUnloaded   = "unloaded"
	StatusUnmounted  = "unmounted"
)

// AuthorizeReply is the result of a granted authorizeConsumer call.
const AuthorizeReply = "hello"

var builtins = map[string]struct{}{
	provider.MethodLaunch:            {},
	provider.MethodAuthorized:        {},
	provider.MethodUnload:            {},
	provider.MethodResize:            {},
	provider.MethodEvent:             {},
	provider.MethodAuthorizeConsumer: {},
	provider.MethodChallengeConsumer: {},
	provider.MethodLoadPage:          {},
	provider.MethodSetFocus:          {},
	provider.MethodSetBlur:           {},
}

// IsBuiltin reports whether method is part of the protocol.
func IsBuiltin(method string) bool {
	_, ok := builtins[method]
	return ok
}

// FocusIndicator styles the wrapper when the provider gains or loses focus.
type FocusIndicator struct {
	FocusStyle string
	BlurStyle  string
}

// ResizeSettings control how provider size reports are applied. Fixed sizes
// are applied directly and no config is pushed to the provider.
type ResizeSettings struct {
	FixedHeight             string
	FixedWidth              string
	AutoResizeWidth         bool
	HeightCalculationMethod string
	WidthCalculationMethod  string
	TargetSelectors         string
	Custom                  func(iframe *dom.Element)
}

func (s ResizeSettings) fixed() bool {
	return s.FixedHeight != "" || s.FixedWidth != ""
}

func (s ResizeSettings) config() resize.Config {
	return resize.Config{
		CustomCal:               s.Custom != nil,
		AutoResizeWidth:         s.AutoResizeWidth,
		HeightCalculationMethod: s.HeightCalculationMethod,
		WidthCalculationMethod:  s.WidthCalculationMethod,
		TargetSelectors:         s.TargetSelectors,
	}
}

// Authorizer decides whether a provider asking from providerOrigin may
// proceed.
type Authorizer func(ctx context.Context, providerOrigin string) error

// Frame is one mounted provider application.
type Frame struct {
	id        string
	host      *transport.Window
	container *dom.Element
	secret    string
	attrs     map[string]string
	methods   map[string]rpc.Handler
	focus     *FocusIndicator
	sizing    ResizeSettings
	authorize Authorizer
	bus       *events.Bus
	channel   *rpc.Channel
	observer  core.Observer

	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	reporter       core.ErrorReporter

	mu            sync.RWMutex
	source        string
	trustedOrigin string
	wrapper       *dom.Element
	iframe        *dom.Element
	mounted       bool
	disposed      bool
	authorized    bool
	cancelListen  func()
	cleanups      []func()
}

func New(host *transport.Window, container *dom.Element, source string, opts ...Option) *Frame {
	f := &Frame{
		id:        uuid.NewString(),
		host:      host,
		container: container,
		bus:       events.NewBus(),
		attrs:     map[string]string{},
		methods:   map[string]rpc.Handler{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.setSource(source)
	f.observer = core.NewObserver("xfc.consumer", f.loggerProvider, f.logger, f.metrics)
	if f.reporter == nil {
		f.reporter = core.LogErrorReporter{Logger: f.observer.Logger()}
	}
	f.bus.WithErrorReporter(f.reporter)

	f.channel = rpc.NewChannel(f.Send,
		rpc.WithName("xfc.consumer.rpc"),
		rpc.WithLogger(f.observer.Logger()),
		rpc.WithMetricsRecorder(f.metrics),
		rpc.WithErrorReporter(f.reporter),
		rpc.WithGuard(f.guard),
	)
	f.channel.Register(provider.MethodLaunch, f.handleLaunch)
	f.channel.Register(provider.MethodAuthorized, f.handleAuthorized)
	f.channel.Register(provider.MethodUnload, f.handleUnload)
	f.channel.Register(provider.MethodResize, f.handleResize)
	f.channel.Register(provider.MethodEvent, f.handleEvent)
	f.channel.Register(provider.MethodAuthorizeConsumer, f.handleAuthorizeConsumer)
	f.channel.Register(provider.MethodChallengeConsumer, f.handleChallengeConsumer)
	f.channel.Register(provider.MethodLoadPage, f.handleLoadPage)
	f.channel.Register(provider.MethodSetFocus, f.handleSetFocus)
	f.channel.Register(provider.MethodSetBlur, f.handleSetBlur)
	for name, handler := range f.methods {
		f.channel.Register(name, handler)
	}
	return f
}

func (f *Frame) ID() string { return f.id }

func (f *Frame) Bus() *events.Bus { return f.bus }

func (f *Frame) Channel() *rpc.Channel { return f.channel }

// On subscribes to a lifecycle or provider-defined event.
func (f *Frame) On(name string, handler events.Handler) func() {
	return f.bus.On(name, handler)
}

func (f *Frame) Source() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.source
}

// TrustedOrigin is "*" until a wildcard frame hears from its provider.
func (f *Frame) TrustedOrigin() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.trustedOrigin
}

func (f *Frame) Wrapper() *dom.Element {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.wrapper
}

func (f *Frame) Iframe() *dom.Element {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.iframe
}

// Status is the data-status of the wrapper.
func (f *Frame) Status() string {
	f.mu.RLock()
	wrapper := f.wrapper
	disposed := f.disposed
	f.mu.RUnlock()
	if wrapper == nil {
		if disposed {
			return StatusUnmounted
		}
		return StatusCreated
	}
	return wrapper.Attribute("data-status")
}

func (f *Frame) Authorized() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.authorized
}

// OnCleanup registers fn to run on unmount.
func (f *Frame) OnCleanup(fn func()) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	f.cleanups = append(f.cleanups, fn)
	f.mu.Unlock()
}

// Mount attaches a wrapper and iframe to the container, starts listening and
// loads the source.
func (f *Frame) Mount(ctx context.Context) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()
	defer func() {
		f.observer.Observe(ctx, startedAt, "mount", err, map[string]any{"frame_id": f.id, "source": f.Source()})
	}()

	if f.host == nil || f.container == nil {
		return frameError("consumer: host and container are required", goerrors.CategoryBadInput, core.ErrorBadInput, nil)
	}
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return notMounted(f.id)
	}
	if f.mounted {
		f.mu.Unlock()
		return frameError("consumer: frame already mounted", goerrors.CategoryConflict, core.ErrorBadInput, map[string]any{"frame_id": f.id})
	}
	doc := f.container.Document()
	wrapper := doc.CreateElement("div")
	wrapper.SetAttribute("class", "xfc")
	wrapper.SetAttribute("data-status", StatusMounted)
	iframe := doc.CreateElement("iframe")
	for name, value := range f.attrs {
		iframe.SetAttribute(name, value)
	}
	f.wrapper = wrapper
	f.iframe = iframe
	f.mounted = true
	source := f.source
	f.mu.Unlock()

	wrapper.AppendChild(iframe)
	f.container.AppendChild(wrapper)
	cancel := f.host.Listen(f.HandleMessage)
	f.mu.Lock()
	f.cancelListen = cancel
	f.mu.Unlock()

	if _, err := f.host.LoadFrame(iframe, source); err != nil {
		return err
	}
	f.bus.Emit(ctx, events.Mounted, nil)
	return nil
}

// Unmount detaches the frame, stops listening, runs cleanup hooks and
// rejects pending calls. A frame cannot be mounted again.
func (f *Frame) Unmount(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f.mu.Lock()
	if !f.mounted {
		f.mu.Unlock()
		return notMounted(f.id)
	}
	f.mounted = false
	f.disposed = true
	f.authorized = false
	wrapper, iframe := f.wrapper, f.iframe
	cancel := f.cancelListen
	cleanups := f.cleanups
	f.cancelListen = nil
	f.cleanups = nil
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	wrapper.SetAttribute("data-status", StatusUnmounted)
	f.host.UnloadFrame(iframe)
	f.container.RemoveChild(wrapper)
	for _, fn := range cleanups {
		fn()
	}
	f.channel.Close()
	f.bus.Emit(ctx, events.Unmounted, nil)
	f.observer.Info(ctx, "consumer: frame unmounted", map[string]any{"frame_id": f.id})
	return nil
}

// Load points the mounted iframe at url without remounting. The trusted
// origin follows the new source.
func (f *Frame) Load(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return frameError("consumer: url is required", goerrors.CategoryBadInput, core.ErrorBadInput, nil)
	}
	f.mu.Lock()
	if !f.mounted {
		f.mu.Unlock()
		return notMounted(f.id)
	}
	f.authorized = false
	iframe := f.iframe
	f.mu.Unlock()
	f.setSource(url)
	if _, err := f.host.LoadFrame(iframe, url); err != nil {
		return err
	}
	f.observer.Debug(ctx, "consumer: frame loaded", map[string]any{"frame_id": f.id, "source": url})
	return nil
}

// Send posts env to the content window with the trusted origin as target.
func (f *Frame) Send(_ context.Context, env rpc.Envelope) error {
	target, trusted, err := f.target()
	if err != nil {
		return err
	}
	data, err := rpc.Encode(env)
	if err != nil {
		return err
	}
	return target.PostMessage(data, trusted)
}

// Trigger sends a named event to the provider.
func (f *Frame) Trigger(ctx context.Context, name string, detail any) error {
	return f.channel.Notify(ctx, provider.MethodEvent, name, detail)
}

// Invoke calls a method the provider registered.
func (f *Frame) Invoke(ctx context.Context, method string, params ...any) *rpc.Call {
	return f.channel.Request(ctx, method, params...)
}

// HandleMessage filters a delivered message and dispatches it. Only
// JSON-RPC payloads from this frame's content window and the trusted origin
// pass. A wildcard frame pins the first origin it hears from.
func (f *Frame) HandleMessage(evt transport.Event) {
	env, ok, err := rpc.Decode(evt.Data)
	if !ok {
		return
	}
	ctx := context.Background()
	if err != nil {
		f.observer.Debug(ctx, "consumer: malformed envelope dropped", map[string]any{"error": err.Error()})
		return
	}
	iframe := f.Iframe()
	if iframe == nil {
		return
	}
	content, ok := f.host.FrameWindow(iframe)
	if !ok || evt.Source == nil || evt.Source != f.host.Handle(content) {
		return
	}

	f.mu.Lock()
	trusted := f.trustedOrigin
	accepted := trusted == origin.Wildcard || trusted == evt.Origin
	if accepted && trusted == origin.Wildcard {
		f.trustedOrigin = evt.Origin
	}
	f.mu.Unlock()
	if !accepted {
		f.observer.Debug(ctx, "consumer: message from untrusted origin dropped", map[string]any{
			"origin":    evt.Origin,
			"frame_id":  f.id,
			"text_code": core.ErrorUntrustedOrigin,
		})
		return
	}
	f.channel.Handle(ctx, env)
}

func (f *Frame) setSource(source string) {
	source = strings.TrimSpace(source)
	trusted := origin.Wildcard
	if source != origin.Wildcard {
		trusted = origin.FromURL(source)
	}
	f.mu.Lock()
	f.source = source
	f.trustedOrigin = trusted
	f.mu.Unlock()
}

func (f *Frame) target() (transport.Target, string, error) {
	f.mu.RLock()
	iframe, trusted, mounted := f.iframe, f.trustedOrigin, f.mounted
	f.mu.RUnlock()
	if !mounted || iframe == nil {
		return nil, "", notMounted(f.id)
	}
	content, ok := f.host.FrameWindow(iframe)
	if !ok {
		return nil, "", notMounted(f.id)
	}
	return f.host.Handle(content), trusted, nil
}

func (f *Frame) guard(_ context.Context, method string) error {
	if IsBuiltin(method) || f.Authorized() {
		return nil
	}
	return notAuthorized(method)
}

func (f *Frame) setStatus(status string) {
	if wrapper := f.Wrapper(); wrapper != nil {
		wrapper.SetAttribute("data-status", status)
	}
}

func (f *Frame) handleLaunch(ctx context.Context, _ rpc.Params) (any, error) {
	f.setStatus(StatusLaunched)
	f.bus.Emit(ctx, events.Launched, nil)
	return nil, nil
}

func (f *Frame) handleAuthorized(ctx context.Context, params rpc.Params) (any, error) {
	detail := events.AuthorizedDetail{}
	if err := params.Decode(&detail); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.authorized = true
	f.mu.Unlock()
	f.setStatus(StatusAuthorized)
	f.bus.Emit(ctx, events.Authorized, detail)
	f.applySizing(ctx)
	return nil, nil
}

func (f *Frame) applySizing(ctx context.Context) {
	iframe := f.Iframe()
	if f.sizing.fixed() {
		if f.sizing.FixedHeight != "" {
			setStyleProperty(iframe, "height", f.sizing.FixedHeight)
		}
		if f.sizing.FixedWidth != "" {
			setStyleProperty(iframe, "width", f.sizing.FixedWidth)
		}
		return
	}
	if err := f.channel.Notify(ctx, provider.MethodResize, f.sizing.config()); err != nil {
		f.observer.Warn(ctx, "consumer: resize config not sent", map[string]any{"frame_id": f.id, "error": err.Error()})
	}
}

func (f *Frame) handleUnload(ctx context.Context, _ rpc.Params) (any, error) {
	f.mu.Lock()
	f.authorized = false
	f.mu.Unlock()
	f.setStatus(StatusUnloaded)
	f.bus.Emit(ctx, events.Unload, nil)
	return nil, nil
}

func (f *Frame) handleResize(_ context.Context, params rpc.Params) (any, error) {
	iframe := f.Iframe()
	if f.sizing.Custom != nil {
		f.sizing.Custom(iframe)
		return nil, nil
	}
	var height, width *string
	if err := params.Decode(&height, &width); err != nil {
		return nil, err
	}
	if height != nil && *height != "" {
		setStyleProperty(iframe, "height", *height)
	}
	if width != nil && *width != "" {
		setStyleProperty(iframe, "width", *width)
	}
	return nil, nil
}

func (f *Frame) handleEvent(ctx context.Context, params rpc.Params) (any, error) {
	var name string
	var detail any
	if err := params.Decode(&name, &detail); err != nil {
		return nil, err
	}
	f.bus.Emit(ctx, name, detail)
	return nil, nil
}

func (f *Frame) handleAuthorizeConsumer(ctx context.Context, _ rpc.Params) (any, error) {
	if f.authorize != nil {
		if err := f.authorize(ctx, f.TrustedOrigin()); err != nil {
			return nil, core.WrapError(err, goerrors.CategoryAuth, "consumer: provider not authorized", core.ErrorAuthorizationDenied, map[string]any{
				"frame_id": f.id,
			})
		}
	}
	return AuthorizeReply, nil
}

func (f *Frame) handleChallengeConsumer(context.Context, rpc.Params) (any, error) {
	if f.secret == "" {
		return nil, frameError("consumer: no secret configured", goerrors.CategoryAuth, core.ErrorChallengeFailed, map[string]any{"frame_id": f.id})
	}
	return f.secret, nil
}

func (f *Frame) handleLoadPage(ctx context.Context, params rpc.Params) (any, error) {
	var url string
	if err := params.Decode(&url); err != nil {
		return nil, err
	}
	return nil, f.Load(ctx, url)
}

func (f *Frame) handleSetFocus(context.Context, rpc.Params) (any, error) {
	if f.focus != nil {
		f.Wrapper().SetStyle(f.focus.FocusStyle)
	}
	return nil, nil
}

func (f *Frame) handleSetBlur(context.Context, rpc.Params) (any, error) {
	if f.focus != nil {
		f.Wrapper().SetStyle(f.focus.BlurStyle)
	}
	return nil, nil
}

// FrameInfo is a point-in-time view of a frame.
type FrameInfo struct {
	ID            string   `json:"id"`
	Source        string   `json:"source"`
	TrustedOrigin string   `json:"trusted_origin"`
	Status        string   `json:"status"`
	Authorized    bool     `json:"authorized"`
	Pending       int      `json:"pending"`
	Methods       []string `json:"methods"`
}

func (f *Frame) Info() FrameInfo {
	return FrameInfo{
		ID:            f.id,
		Source:        f.Source(),
		TrustedOrigin: f.TrustedOrigin(),
		Status:        f.Status(),
		Authorized:    f.Authorized(),
		Pending:       f.channel.Pending(),
		Methods:       f.channel.Methods(),
	}
}
