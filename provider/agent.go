// Package provider runs inside an embedded page. It authorizes the embedding
// page, reports size changes and forwards lifecycle events to it.
package provider

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/dom"
	"github.com/goliatone/go-xfc/events"
	"github.com/goliatone/go-xfc/origin"
	"github.com/goliatone/go-xfc/resize"
	"github.com/goliatone/go-xfc/rpc"
	"github.com/goliatone/go-xfc/transport"
)

// Methods exchanged with the consumer.
const (
	MethodLaunch            = "launch"
	MethodAuthorized        = "authorized"
	MethodAuthorizeConsumer = "authorizeConsumer"
	MethodChallengeConsumer = "challengeConsumer"
	MethodEvent             = "event"
	MethodLoadPage          = "loadPage"
	MethodUnload            = "unload"
	MethodSetFocus          = "setFocus"
	MethodSetBlur           = "setBlur"
	MethodResize            = resize.MethodResize
)

var nonNavigating = regexp.MustCompile(`^(tel|mailto|fax|sms|callto):`)

// Host is the window the provider runs in.
type Host interface {
	Embedded() bool
	Parent() transport.Target
	Location() string
	Document() *dom.Document
	Listen(listener transport.Listener) func()
	OnResize(fn func()) func()
	OnBeforeUnload(fn func()) func()
}

var _ Host = (*transport.Window)(nil)

// Config is fixed at construction.
type Config struct {
	ACLs            []string
	Secret          Secret
	TargetSelectors string
	Options         map[string]any
	OnReady         func(*Agent)
	Methods         map[string]rpc.Handler
}

// ConfigFromCore maps the file configuration. An empty secret disables the
// challenge.
func ConfigFromCore(cfg core.ProviderConfig) Config {
	out := Config{
		ACLs:            append([]string(nil), cfg.ACLs...),
		TargetSelectors: cfg.TargetSelectors,
	}
	if cfg.Secret != "" {
		out.Secret = SecretString(cfg.Secret)
	}
	return out
}

type Option func(*Agent)

func WithLogger(logger core.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(a *Agent) { a.loggerProvider = provider }
}

func WithMetricsRecorder(metrics core.MetricsRecorder) Option {
	return func(a *Agent) { a.metrics = metrics }
}

func WithErrorReporter(reporter core.ErrorReporter) Option {
	return func(a *Agent) { a.reporter = reporter }
}

// WithBus shares a lifecycle bus with other components.
func WithBus(bus *events.Bus) Option {
	return func(a *Agent) {
		if bus != nil {
			a.bus = bus
		}
	}
}

func WithMeasurer(measurer resize.Measurer) Option {
	return func(a *Agent) { a.measurer = measurer }
}

func WithResizeInterval(interval time.Duration) Option {
	return func(a *Agent) { a.resizeInterval = interval }
}

// Agent is the provider side of one embedding.
type Agent struct {
	id             string
	host           Host
	cfg            Config
	bus            *events.Bus
	channel        *rpc.Channel
	resizer        *resize.Negotiator
	measurer       resize.Measurer
	resizeInterval time.Duration
	observer       core.Observer
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	reporter       core.ErrorReporter

	mu           sync.RWMutex
	acl          origin.ACL
	activeOrigin string
	state        State
	cancels      []func()
}

func New(host Host, cfg Config, opts ...Option) *Agent {
	a := &Agent{
		id:    uuid.NewString(),
		host:  host,
		cfg:   cfg,
		bus:   events.NewBus(),
		acl:   origin.ACL(cfg.ACLs).Clone(),
		state: StateCreated,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.cfg.Options == nil {
		a.cfg.Options = map[string]any{}
	}
	a.observer = core.NewObserver("xfc.provider", a.loggerProvider, a.logger, a.metrics)
	if a.reporter == nil {
		a.reporter = core.LogErrorReporter{Logger: a.observer.Logger()}
	}
	a.bus.WithErrorReporter(a.reporter)

	a.channel = rpc.NewChannel(a.send,
		rpc.WithName("xfc.provider.rpc"),
		rpc.WithLogger(a.observer.Logger()),
		rpc.WithMetricsRecorder(a.metrics),
		rpc.WithErrorReporter(a.reporter),
	)
	a.channel.Register(MethodResize, a.handleResize)
	a.channel.Register(MethodEvent, a.handleEvent)
	for name, handler := range cfg.Methods {
		a.channel.Register(name, handler)
	}

	doc := host.Document()
	if a.measurer == nil {
		a.measurer = resize.DocumentMeasurer{Document: doc}
	}
	a.resizer = resize.New(a.channel, a.measurer,
		resize.WithInterval(a.resizeInterval),
		resize.WithTargetSelectors(cfg.TargetSelectors),
		resize.WithLogger(a.observer.Logger()),
		resize.WithTriggers(resize.Triggers{
			ObserveMutations: doc.ObserveMutations,
			OnWindowResize:   host.OnResize,
		}),
	)
	a.cancels = append(a.cancels, doc.OnLoad(a.resizer.ImageLoaded))
	a.state = StateInitialized
	return a
}

func (a *Agent) ID() string { return a.id }

func (a *Agent) Bus() *events.Bus { return a.bus }

func (a *Agent) Channel() *rpc.Channel { return a.channel }

func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// ActiveOrigin is the first trusted origin the consumer posted from.
func (a *Agent) ActiveOrigin() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activeOrigin
}

func (a *Agent) ACL() origin.ACL {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.acl.Clone()
}

// Launch runs the handshake and blocks until it settles or ctx is done.
// Outside an iframe the agent authorizes itself. An agent launches once;
// after an error it has to be rebuilt.
func (a *Agent) Launch(ctx context.Context) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()
	defer func() {
		a.observer.Observe(ctx, startedAt, "launch", err, map[string]any{"agent_id": a.id})
	}()

	a.mu.Lock()
	if a.state != StateInitialized {
		state := a.state
		a.mu.Unlock()
		return alreadyLaunched(a.id, state)
	}
	a.state = StateLaunching
	if !a.host.Embedded() {
		a.mu.Unlock()
		a.authorize(ctx)
		return nil
	}
	acl := a.acl.Clone()
	a.cancels = append(a.cancels,
		a.host.Listen(a.HandleMessage),
		a.host.OnBeforeUnload(a.Unload),
	)
	a.mu.Unlock()

	a.notify(ctx, MethodLaunch)

	switch {
	case acl.HasSpecific():
		if _, err := a.channel.Request(ctx, MethodAuthorizeConsumer).Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return a.fail(ctx, authorizationDenied(err))
		}
		a.authorize(ctx)
		return nil
	case a.cfg.Secret != nil:
		raw, err := a.channel.Request(ctx, MethodChallengeConsumer).Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return a.fail(ctx, challengeFailed(err, nil))
		}
		return a.VerifyChallenge(ctx, attemptString(raw))
	default:
		a.authorize(ctx)
		return nil
	}
}

// VerifyChallenge checks attempt against the secret. On success every origin
// is trusted from then on.
func (a *Agent) VerifyChallenge(ctx context.Context, attempt string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.cfg.Secret == nil {
		return a.fail(ctx, challengeFailed(nil, map[string]any{"reason": "no secret configured"}))
	}
	ok, err := a.cfg.Secret.Verify(ctx, attempt)
	if err != nil {
		return a.fail(ctx, challengeFailed(err, nil))
	}
	if !ok {
		return a.fail(ctx, challengeFailed(nil, map[string]any{"reason": "secret mismatch"}))
	}
	a.mu.Lock()
	a.acl = origin.ACL{origin.Wildcard}
	a.mu.Unlock()
	a.authorize(ctx)
	return nil
}

// HandleMessage filters a delivered message and dispatches it. Only
// JSON-RPC payloads from the parent window and a trusted origin pass.
func (a *Agent) HandleMessage(evt transport.Event) {
	env, ok, err := rpc.Decode(evt.Data)
	if !ok {
		return
	}
	ctx := context.Background()
	if err != nil {
		a.observer.Debug(ctx, "provider: malformed envelope dropped", map[string]any{"error": err.Error()})
		return
	}
	parent := a.host.Parent()
	if parent == nil || evt.Source != parent {
		return
	}

	a.mu.Lock()
	trusted := origin.Matches(a.acl, evt.Origin)
	if trusted && a.activeOrigin == "" {
		a.activeOrigin = evt.Origin
	}
	a.mu.Unlock()
	if !trusted {
		a.observer.Debug(ctx, "provider: message from untrusted origin dropped", map[string]any{
			"origin":    evt.Origin,
			"text_code": core.ErrorUntrustedOrigin,
		})
		return
	}
	a.channel.Handle(ctx, env)
}

// Trigger sends a named event to the consumer.
func (a *Agent) Trigger(ctx context.Context, name string, detail any) error {
	return a.channel.Notify(ctx, MethodEvent, name, detail)
}

// Invoke calls a method the consumer registered.
func (a *Agent) Invoke(ctx context.Context, method string, params ...any) *rpc.Call {
	return a.channel.Request(ctx, method, params...)
}

func (a *Agent) Fullscreen(ctx context.Context, url string) error {
	return a.Trigger(ctx, events.Fullscreen, url)
}

func (a *Agent) HTTPError(ctx context.Context, detail events.HTTPErrorDetail) error {
	if detail == nil {
		detail = events.HTTPErrorDetail{}
	}
	return a.Trigger(ctx, events.ProviderHTTPError, detail)
}

// LoadPage asks the consumer to load url in this frame.
func (a *Agent) LoadPage(ctx context.Context, url string) error {
	return a.channel.Notify(ctx, MethodLoadPage, url)
}

func (a *Agent) Focus(ctx context.Context) error {
	return a.channel.Notify(ctx, MethodSetFocus)
}

func (a *Agent) Blur(ctx context.Context) error {
	return a.channel.Notify(ctx, MethodSetBlur)
}

// Unload tells the consumer this page is going away, unless the active
// element is a link that does not replace the page.
func (a *Agent) Unload() {
	if el := a.host.Document().ActiveElement(); el != nil {
		if el.HasAttribute("download") || nonNavigating.MatchString(el.Href()) {
			return
		}
	}
	a.mu.Lock()
	if a.state == StateUnloaded {
		a.mu.Unlock()
		return
	}
	a.state = StateUnloaded
	a.mu.Unlock()

	ctx := context.Background()
	a.notify(ctx, MethodUnload)
	if err := a.Trigger(ctx, events.Unload, nil); err != nil {
		a.observer.Warn(ctx, "provider: unload event not sent", map[string]any{"error": err.Error()})
	}
	a.bus.Emit(ctx, events.Unload, nil)
}

// Close stops listening and rejects pending calls.
func (a *Agent) Close() {
	a.mu.Lock()
	cancels := a.cancels
	a.cancels = nil
	a.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	a.resizer.Close()
	a.channel.Close()
}

func (a *Agent) authorize(ctx context.Context) {
	a.mu.Lock()
	if a.state == StateAuthorized {
		a.mu.Unlock()
		return
	}
	a.state = StateAuthorized
	a.mu.Unlock()

	a.host.Document().Root().RemoveAttribute("hidden")
	a.bus.Emit(ctx, events.Ready, nil)
	a.notify(ctx, MethodAuthorized, events.AuthorizedDetail{
		URL:     a.host.Location(),
		Options: a.cfg.Options,
	})
	if a.cfg.OnReady != nil {
		a.cfg.OnReady(a)
	}
}

func (a *Agent) fail(ctx context.Context, err error) error {
	a.mu.Lock()
	a.state = StateErrored
	a.mu.Unlock()
	a.bus.Emit(ctx, events.Error, events.ErrorDetail{Err: err, TextCode: core.TextCode(err)})
	return err
}

func (a *Agent) notify(ctx context.Context, method string, params ...any) {
	if err := a.channel.Notify(ctx, method, params...); err != nil {
		a.observer.Warn(ctx, "provider: notification not sent", map[string]any{
			"method":    method,
			"error":     err.Error(),
			"text_code": core.TextCode(err),
		})
	}
}

// send posts to the active origin once known, otherwise to every concrete
// ACL entry. Nothing is sent outside an iframe.
func (a *Agent) send(ctx context.Context, env rpc.Envelope) error {
	parent := a.host.Parent()
	if !a.host.Embedded() || parent == nil {
		return nil
	}
	data, err := rpc.Encode(env)
	if err != nil {
		return err
	}

	a.mu.RLock()
	acl := a.acl.Clone()
	active := a.activeOrigin
	a.mu.RUnlock()

	if acl.IsEmpty() {
		err := noTrustedOrigins()
		a.observer.Error(ctx, err.Message, map[string]any{"method": env.Method, "text_code": err.TextCode})
		return err
	}
	if active != "" {
		return parent.PostMessage(data, active)
	}
	for _, target := range acl {
		if origin.IsPattern(target) {
			a.observer.Debug(ctx, "provider: pattern acl entry skipped until an origin is bound", map[string]any{"origin": target})
			continue
		}
		if err := parent.PostMessage(data, target); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) handleResize(ctx context.Context, params rpc.Params) (any, error) {
	cfg := resize.Config{}
	if params.Len() > 0 {
		if err := params.Decode(&cfg); err != nil {
			return nil, err
		}
	}
	a.resizer.Configure(ctx, cfg)
	return nil, nil
}

func (a *Agent) handleEvent(ctx context.Context, params rpc.Params) (any, error) {
	var name string
	var detail any
	if err := params.Decode(&name, &detail); err != nil {
		return nil, err
	}
	a.bus.Emit(ctx, name, detail)
	return nil, nil
}

// attemptString keeps string results as-is and other JSON values as their
// literal text.
func attemptString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	var text string
	if strings.HasPrefix(trimmed, `"`) && json.Unmarshal(raw, &text) == nil {
		return text
	}
	return trimmed
}

// Info is a point-in-time view of an agent.
type Info struct {
	ID           string   `json:"id"`
	Location     string   `json:"location"`
	State        string   `json:"state"`
	Embedded     bool     `json:"embedded"`
	ActiveOrigin string   `json:"active_origin"`
	ACL          []string `json:"acl"`
	Pending      int      `json:"pending"`
	Methods      []string `json:"methods"`
}

func (a *Agent) Info() Info {
	return Info{
		ID:           a.id,
		Location:     a.host.Location(),
		State:        a.State().String(),
		Embedded:     a.host.Embedded(),
		ActiveOrigin: a.ActiveOrigin(),
		ACL:          a.ACL(),
		Pending:      a.channel.Pending(),
		Methods:      a.channel.Methods(),
	}
}
