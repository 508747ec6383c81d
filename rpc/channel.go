package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-xfc/core"
)

// Handler serves one exposed method. The returned value is marshaled as the
// response result.
type Handler func(ctx context.Context, params Params) (any, error)

// SendFunc hands an outbound envelope to the transport.
type SendFunc func(ctx context.Context, env Envelope) error

// Guard decides whether an inbound call to method may run. A non-nil error
// rejects the call.
type Guard func(ctx context.Context, method string) error

type Option func(*Channel)

func WithName(name string) Option {
	return func(c *Channel) {
		if name = strings.TrimSpace(name); name != "" {
			c.name = name
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Channel) { c.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(c *Channel) { c.loggerProvider = provider }
}

func WithMetricsRecorder(metrics core.MetricsRecorder) Option {
	return func(c *Channel) { c.metrics = metrics }
}

func WithErrorReporter(reporter core.ErrorReporter) Option {
	return func(c *Channel) { c.reporter = reporter }
}

func WithGuard(guard Guard) Option {
	return func(c *Channel) { c.guard = guard }
}

// Channel correlates outbound requests with their responses and dispatches
// inbound calls to registered methods. Inbound envelopes are handled on the
// caller's goroutine, so a transport that delivers in order keeps handler
// order.
type Channel struct {
	name           string
	send           SendFunc
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	reporter       core.ErrorReporter
	guard          Guard
	observer       core.Observer

	mu      sync.Mutex
	methods map[string]Handler
	pending map[string]*Call
	nextID  int64
	closed  bool
}

func NewChannel(send SendFunc, opts ...Option) *Channel {
	c := &Channel{
		name:    "xfc.rpc",
		send:    send,
		methods: map[string]Handler{},
		pending: map[string]*Call{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.observer = core.NewObserver(c.name, c.loggerProvider, c.logger, c.metrics)
	return c
}

// Register exposes handler under name. A later registration for the same
// name replaces the earlier one.
func (c *Channel) Register(name string, handler Handler) {
	name = strings.TrimSpace(name)
	if c == nil || name == "" || handler == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[name] = handler
}

func (c *Channel) Has(name string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.methods[name]
	return ok
}

func (c *Channel) Methods() []string {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pending is the number of outstanding requests.
func (c *Channel) Pending() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Request sends a request and returns its pending call. Ids come from a
// per-channel counter and are never reused.
func (c *Channel) Request(ctx context.Context, method string, params ...any) *Call {
	call := newCall(method)
	if c == nil {
		call.resolve(nil, rpcError("rpc: channel is nil", core.ErrorInternal, nil))
		return call
	}
	raw, err := marshalParams(params)
	if err != nil {
		call.resolve(nil, rpcWrapError(err, "rpc: marshal params", core.ErrorBadInput, map[string]any{"method": method}))
		return call
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		call.resolve(nil, disposedError(method))
		return call
	}
	c.nextID++
	call.ID = c.nextID
	env := NewRequest(call.ID, method, raw)
	c.pending[env.IDKey()] = call
	c.mu.Unlock()

	if err := c.sendEnvelope(ctx, env); err != nil {
		c.mu.Lock()
		delete(c.pending, env.IDKey())
		c.mu.Unlock()
		call.resolve(nil, err)
	}
	return call
}

// Notify sends a notification. With no params the params member is
// omitted.
func (c *Channel) Notify(ctx context.Context, method string, params ...any) error {
	if c == nil {
		return rpcError("rpc: channel is nil", core.ErrorInternal, nil)
	}
	var raw json.RawMessage
	if len(params) > 0 {
		encoded, err := marshalParams(params)
		if err != nil {
			return rpcWrapError(err, "rpc: marshal params", core.ErrorBadInput, map[string]any{"method": method})
		}
		raw = encoded
	}
	if c.isClosed() {
		return disposedError(method)
	}
	return c.sendEnvelope(ctx, NewNotification(method, raw))
}

// Handle processes one inbound envelope. It never panics: handler failures
// become error responses and panics are reported to the error reporter.
func (c *Channel) Handle(ctx context.Context, env Envelope) {
	if c == nil || c.isClosed() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	switch env.Kind() {
	case KindResponse:
		c.resolve(env)
	case KindRequest:
		result, err := c.invoke(ctx, env)
		response := Envelope{JSONRPC: Version, ID: env.ID}
		if err != nil {
			response.Error = toErrorObject(err)
		} else {
			response.Result = result
		}
		if sendErr := c.sendEnvelope(ctx, response); sendErr != nil {
			c.observer.Warn(ctx, "rpc: response not sent", map[string]any{"method": env.Method, "error": sendErr.Error()})
		}
	case KindNotification:
		if _, err := c.invoke(ctx, env); err != nil {
			c.observer.Debug(ctx, "rpc: notification failed", map[string]any{
				"method":    env.Method,
				"error":     err.Error(),
				"text_code": core.TextCode(err),
			})
		}
	default:
		c.observer.Debug(ctx, "rpc: invalid envelope dropped", nil)
	}
}

// Close drops further inbound traffic and rejects outstanding calls.
func (c *Channel) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = map[string]*Call{}
	c.mu.Unlock()
	for _, call := range pending {
		call.resolve(nil, disposedError(call.Method))
	}
}

func (c *Channel) invoke(ctx context.Context, env Envelope) (result json.RawMessage, err error) {
	startedAt := time.Now()
	fields := map[string]any{"method": env.Method, "kind": env.Kind().String()}
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("rpc: method %q panicked: %v", env.Method, recovered)
			if c.reporter != nil {
				c.reporter.ReportUncaught(ctx, panicErr)
			}
			result = nil
			err = rpcWrapError(panicErr, "rpc: handler failed", core.ErrorHandlerFailed, map[string]any{"method": env.Method})
		}
		c.observer.Observe(ctx, startedAt, "handle", err, fields)
	}()

	c.mu.Lock()
	handler := c.methods[env.Method]
	guard := c.guard
	c.mu.Unlock()
	if handler == nil {
		return nil, rpcError("rpc: method not found: "+env.Method, core.ErrorMethodNotFound, map[string]any{"method": env.Method})
	}
	if guard != nil {
		if guardErr := guard(ctx, env.Method); guardErr != nil {
			if core.TextCode(guardErr) != "" {
				return nil, guardErr
			}
			return nil, rpcWrapError(guardErr, "rpc: method not authorized", core.ErrorNotAuthorized, map[string]any{"method": env.Method})
		}
	}

	value, handlerErr := handler(ctx, Params(env.Params))
	if handlerErr != nil {
		if core.TextCode(handlerErr) != "" {
			return nil, handlerErr
		}
		return nil, rpcWrapError(handlerErr, "rpc: handler failed: "+handlerErr.Error(), core.ErrorHandlerFailed, map[string]any{"method": env.Method})
	}
	encoded, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		return nil, rpcWrapError(marshalErr, "rpc: marshal result", core.ErrorHandlerFailed, map[string]any{"method": env.Method})
	}
	return encoded, nil
}

func (c *Channel) resolve(env Envelope) {
	c.mu.Lock()
	call, ok := c.pending[env.IDKey()]
	if ok {
		delete(c.pending, env.IDKey())
	}
	c.mu.Unlock()
	if !ok {
		c.observer.Debug(context.Background(), "rpc: response for unknown id dropped", map[string]any{"id": env.IDKey()})
		return
	}
	if env.Error != nil {
		call.resolve(nil, FromErrorObject(env.Error))
		return
	}
	call.resolve(env.Result, nil)
}

func (c *Channel) sendEnvelope(ctx context.Context, env Envelope) error {
	if c.send == nil {
		return rpcError("rpc: send function is nil", core.ErrorInternal, nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return c.send(ctx, env)
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func disposedError(method string) error {
	return rpcError("rpc: channel disposed", core.ErrorDisposed, map[string]any{"method": method})
}

// Call is an outstanding request.
type Call struct {
	ID     int64
	Method string

	once   sync.Once
	done   chan struct{}
	result json.RawMessage
	err    error
}

func newCall(method string) *Call {
	return &Call{Method: method, done: make(chan struct{})}
}

func (c *Call) resolve(result json.RawMessage, err error) {
	c.once.Do(func() {
		c.result = result
		c.err = err
		close(c.done)
	})
}

// Done is closed once the call has a result or an error.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call resolves or ctx is done. Giving up on ctx does
// not remove the call from the channel.
func (c *Call) Wait(ctx context.Context) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Decode waits for the call and unmarshals its result into dst.
func (c *Call) Decode(ctx context.Context, dst any) error {
	result, err := c.Wait(ctx)
	if err != nil {
		return err
	}
	if dst == nil || len(result) == 0 {
		return nil
	}
	return json.Unmarshal(result, dst)
}
