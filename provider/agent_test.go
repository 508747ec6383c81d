package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/dom"
	"github.com/goliatone/go-xfc/events"
	"github.com/goliatone/go-xfc/origin"
	"github.com/goliatone/go-xfc/rpc"
	"github.com/goliatone/go-xfc/transport"
)

const (
	consumerOrigin = "https://consumer.example.com"
	providerHref   = "https://app.example.com/embed"
)

type received struct {
	method string
	params rpc.Params
}

// harness plays the embedding page with a plain rpc channel.
type harness struct {
	parent  *transport.Window
	child   *transport.Window
	channel *rpc.Channel

	mu   sync.Mutex
	log  []received
	seen chan received
}

func newHarness(t *testing.T, handlers map[string]rpc.Handler) *harness {
	t.Helper()
	h := &harness{seen: make(chan received, 64)}
	h.parent = transport.NewWindow(consumerOrigin + "/page")
	h.child = transport.NewWindow(providerHref, transport.WithParent(h.parent))
	h.channel = rpc.NewChannel(func(_ context.Context, env rpc.Envelope) error {
		data, err := rpc.Encode(env)
		if err != nil {
			return err
		}
		return h.parent.Handle(h.child).PostMessage(data, origin.Wildcard)
	})
	for _, method := range []string{MethodLaunch, MethodAuthorized, MethodEvent, MethodUnload, MethodResize, MethodLoadPage, MethodSetFocus, MethodSetBlur} {
		h.channel.Register(method, h.record(method, nil))
	}
	for method, handler := range handlers {
		h.channel.Register(method, h.record(method, handler))
	}
	h.parent.Listen(func(evt transport.Event) {
		env, ok, err := rpc.Decode(evt.Data)
		if !ok || err != nil {
			return
		}
		h.channel.Handle(context.Background(), env)
	})
	t.Cleanup(func() {
		h.channel.Close()
		h.parent.Close()
		h.child.Close()
	})
	return h
}

func (h *harness) record(method string, next rpc.Handler) rpc.Handler {
	return func(ctx context.Context, params rpc.Params) (any, error) {
		entry := received{method: method, params: params}
		h.mu.Lock()
		h.log = append(h.log, entry)
		h.mu.Unlock()
		h.seen <- entry
		if next != nil {
			return next(ctx, params)
		}
		return nil, nil
	}
}

func (h *harness) waitFor(t *testing.T, method string) received {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case entry := <-h.seen:
			if entry.method == method {
				return entry
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", method)
		}
	}
}

func (h *harness) count(method string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, entry := range h.log {
		if entry.method == method {
			total++
		}
	}
	return total
}

func (h *harness) events(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, entry := range h.log {
		if entry.method != MethodEvent {
			continue
		}
		var got string
		if err := entry.params.Decode(&got); err == nil && got == name {
			total++
		}
	}
	return total
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLaunch_AuthorizesAgainstSpecificACL(t *testing.T) {
	h := newHarness(t, map[string]rpc.Handler{
		MethodAuthorizeConsumer: func(context.Context, rpc.Params) (any, error) { return "hello", nil },
	})
	h.child.Document().Root().SetAttribute("hidden", "")

	var readyCalls int
	agent := New(h.child, Config{
		ACLs:    []string{consumerOrigin},
		Options: map[string]any{"theme": "dark"},
		OnReady: func(*Agent) { readyCalls++ },
	})
	defer agent.Close()

	var ready int
	agent.Bus().On(events.Ready, func(context.Context, events.Event) { ready++ })

	if err := agent.Launch(testCtx(t)); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if agent.State() != StateAuthorized {
		t.Fatalf("expected authorized, got %s", agent.State())
	}
	if agent.ActiveOrigin() != consumerOrigin {
		t.Fatalf("expected active origin %q, got %q", consumerOrigin, agent.ActiveOrigin())
	}
	if h.child.Document().Root().HasAttribute("hidden") {
		t.Fatalf("expected hidden attribute removed")
	}
	if ready != 1 || readyCalls != 1 {
		t.Fatalf("expected one ready event and callback, got %d/%d", ready, readyCalls)
	}

	h.waitFor(t, MethodLaunch)
	authorized := h.waitFor(t, MethodAuthorized)
	var detail events.AuthorizedDetail
	if err := authorized.params.Decode(&detail); err != nil {
		t.Fatalf("decode authorized: %v", err)
	}
	if detail.URL != providerHref || detail.Options["theme"] != "dark" {
		t.Fatalf("unexpected authorized detail %#v", detail)
	}
}

func TestLaunch_AuthorizationDenied(t *testing.T) {
	h := newHarness(t, map[string]rpc.Handler{
		MethodAuthorizeConsumer: func(context.Context, rpc.Params) (any, error) {
			return nil, errors.New("not today")
		},
	})
	agent := New(h.child, Config{ACLs: []string{consumerOrigin}})
	defer agent.Close()

	var ready, failed int
	agent.Bus().On(events.Ready, func(context.Context, events.Event) { ready++ })
	events.Subscribe(agent.Bus(), events.Error, func(_ context.Context, detail events.ErrorDetail) {
		if detail.TextCode == core.ErrorAuthorizationDenied {
			failed++
		}
	})

	err := agent.Launch(testCtx(t))
	if !core.HasTextCode(err, core.ErrorAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}
	if agent.State() != StateErrored {
		t.Fatalf("expected errored, got %s", agent.State())
	}
	if ready != 0 || failed != 1 {
		t.Fatalf("expected no ready and one error event, got %d/%d", ready, failed)
	}
}

func TestLaunch_SecretChallenge(t *testing.T) {
	h := newHarness(t, map[string]rpc.Handler{
		MethodChallengeConsumer: func(context.Context, rpc.Params) (any, error) { return "abc", nil },
	})
	agent := New(h.child, Config{ACLs: []string{origin.Wildcard}, Secret: SecretString("abc")})
	defer agent.Close()

	if err := agent.Launch(testCtx(t)); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if agent.State() != StateAuthorized {
		t.Fatalf("expected authorized, got %s", agent.State())
	}
	if !agent.ACL().IsWildcard() {
		t.Fatalf("expected wildcard acl after challenge, got %#v", agent.ACL())
	}
	if h.count(MethodChallengeConsumer) != 1 {
		t.Fatalf("expected one challenge, got %d", h.count(MethodChallengeConsumer))
	}
	h.waitFor(t, MethodAuthorized)
}

func TestLaunch_NumericSecretAttempt(t *testing.T) {
	h := newHarness(t, map[string]rpc.Handler{
		MethodChallengeConsumer: func(context.Context, rpc.Params) (any, error) { return 123, nil },
	})
	agent := New(h.child, Config{ACLs: []string{origin.Wildcard}, Secret: SecretString("123")})
	defer agent.Close()

	if err := agent.Launch(testCtx(t)); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if agent.State() != StateAuthorized {
		t.Fatalf("expected authorized, got %s", agent.State())
	}
}

func TestLaunch_RunsOnce(t *testing.T) {
	h := newHarness(t, map[string]rpc.Handler{
		MethodAuthorizeConsumer: func(context.Context, rpc.Params) (any, error) { return "hello", nil },
	})
	var pings atomic.Int32
	agent := New(h.child, Config{
		ACLs: []string{consumerOrigin},
		Methods: map[string]rpc.Handler{
			"ping": func(context.Context, rpc.Params) (any, error) {
				pings.Add(1)
				return "pong", nil
			},
		},
	})
	defer agent.Close()

	if err := agent.Launch(testCtx(t)); err != nil {
		t.Fatalf("launch: %v", err)
	}
	err := agent.Launch(testCtx(t))
	if !core.HasTextCode(err, core.ErrorBadInput) {
		t.Fatalf("expected second launch to be rejected, got %v", err)
	}
	if agent.State() != StateAuthorized {
		t.Fatalf("expected authorized to stay terminal, got %s", agent.State())
	}

	if _, err := h.channel.Request(testCtx(t), "ping").Wait(testCtx(t)); err != nil {
		t.Fatalf("ping: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if pings.Load() != 1 {
		t.Fatalf("expected one handler run per request, got %d", pings.Load())
	}
	if h.count(MethodLaunch) != 1 || h.count(MethodAuthorizeConsumer) != 1 {
		t.Fatalf("expected one launch and one authorizeConsumer, got %d/%d",
			h.count(MethodLaunch), h.count(MethodAuthorizeConsumer))
	}
}

func TestLaunch_ErroredAgentDoesNotRetry(t *testing.T) {
	h := newHarness(t, map[string]rpc.Handler{
		MethodAuthorizeConsumer: func(context.Context, rpc.Params) (any, error) {
			return nil, errors.New("not today")
		},
	})
	agent := New(h.child, Config{ACLs: []string{consumerOrigin}})
	defer agent.Close()

	if err := agent.Launch(testCtx(t)); !core.HasTextCode(err, core.ErrorAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}
	if err := agent.Launch(testCtx(t)); !core.HasTextCode(err, core.ErrorBadInput) {
		t.Fatalf("expected relaunch after error to be rejected, got %v", err)
	}
	if agent.State() != StateErrored {
		t.Fatalf("expected errored, got %s", agent.State())
	}
	if h.count(MethodAuthorizeConsumer) != 1 {
		t.Fatalf("expected no retry, got %d authorizeConsumer requests", h.count(MethodAuthorizeConsumer))
	}
}

func TestVerifyChallenge_MismatchNeverAuthorizes(t *testing.T) {
	agent := New(transport.NewWindow(providerHref), Config{Secret: SecretString("abc")})
	defer agent.Close()

	var ready int
	agent.Bus().On(events.Ready, func(context.Context, events.Event) { ready++ })

	err := agent.VerifyChallenge(context.Background(), "xyz")
	if !core.HasTextCode(err, core.ErrorChallengeFailed) {
		t.Fatalf("expected challenge failed, got %v", err)
	}
	if agent.State() == StateAuthorized || ready != 0 {
		t.Fatalf("expected no authorization, state %s ready %d", agent.State(), ready)
	}
}

func TestVerifyChallenge_SecretFunc(t *testing.T) {
	var attempts []string
	agent := New(transport.NewWindow(providerHref), Config{
		Secret: SecretFunc(func(_ context.Context, attempt string) (bool, error) {
			attempts = append(attempts, attempt)
			if attempt == "boom" {
				return false, errors.New("backend down")
			}
			return attempt == "ok", nil
		}),
	})
	defer agent.Close()

	if err := agent.VerifyChallenge(context.Background(), "boom"); !core.HasTextCode(err, core.ErrorChallengeFailed) {
		t.Fatalf("expected verifier error to fail the challenge, got %v", err)
	}
	if err := agent.VerifyChallenge(context.Background(), "ok"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if agent.State() != StateAuthorized {
		t.Fatalf("expected authorized, got %s", agent.State())
	}
	if len(attempts) != 2 || attempts[1] != "ok" {
		t.Fatalf("unexpected attempts %#v", attempts)
	}
}

func TestLaunch_NotEmbeddedAuthorizesLocally(t *testing.T) {
	win := transport.NewWindow(providerHref)
	defer win.Close()
	agent := New(win, Config{ACLs: []string{consumerOrigin}})
	defer agent.Close()

	if err := agent.Launch(context.Background()); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if agent.State() != StateAuthorized {
		t.Fatalf("expected authorized, got %s", agent.State())
	}
	if err := agent.Trigger(context.Background(), "custom", nil); err != nil {
		t.Fatalf("expected sends outside an iframe to be skipped, got %v", err)
	}
}

func TestLaunch_EmptyACLWithoutSecretAuthorizesWithoutSending(t *testing.T) {
	h := newHarness(t, nil)
	agent := New(h.child, Config{})
	defer agent.Close()

	if err := agent.Launch(testCtx(t)); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if agent.State() != StateAuthorized {
		t.Fatalf("expected authorized, got %s", agent.State())
	}
	time.Sleep(50 * time.Millisecond)
	if h.count(MethodLaunch) != 0 || h.count(MethodAuthorized) != 0 {
		t.Fatalf("expected nothing sent without trusted origins")
	}
}

func TestLaunch_EmptyACLWithSecretFailsChallenge(t *testing.T) {
	h := newHarness(t, nil)
	agent := New(h.child, Config{Secret: SecretString("abc")})
	defer agent.Close()

	err := agent.Launch(testCtx(t))
	if !core.HasTextCode(err, core.ErrorChallengeFailed) {
		t.Fatalf("expected challenge failure, got %v", err)
	}
	var root *goerrors.Error
	if !goerrors.As(err, &root) {
		t.Fatalf("expected error envelope, got %T", err)
	}
	if agent.State() != StateErrored {
		t.Fatalf("expected errored, got %s", agent.State())
	}
}

func TestHandleMessage_FiltersInbound(t *testing.T) {
	parent := transport.NewWindow("https://app.example.com")
	child := transport.NewWindow(providerHref, transport.WithParent(parent))
	stranger := transport.NewWindow("https://app.example.com")
	defer parent.Close()
	defer child.Close()
	defer stranger.Close()

	var pings int
	agent := New(child, Config{
		ACLs: []string{"*.example.com"},
		Methods: map[string]rpc.Handler{
			"ping": func(context.Context, rpc.Params) (any, error) {
				pings++
				return nil, nil
			},
		},
	})
	defer agent.Close()

	ping := []byte(`{"jsonrpc":"2.0","method":"ping"}`)

	agent.HandleMessage(transport.Event{Data: []byte(`{"method":"ping"}`), Origin: "https://app.example.com", Source: child.Parent()})
	agent.HandleMessage(transport.Event{Data: ping, Origin: "https://app.example.com", Source: child.Handle(stranger)})
	agent.HandleMessage(transport.Event{Data: ping, Origin: "https://evil.test", Source: child.Parent()})
	if pings != 0 {
		t.Fatalf("expected filtered messages to be dropped, got %d", pings)
	}
	if agent.ActiveOrigin() != "" {
		t.Fatalf("expected no active origin yet, got %q", agent.ActiveOrigin())
	}

	agent.HandleMessage(transport.Event{Data: ping, Origin: "https://app.example.com", Source: child.Parent()})
	if pings != 1 {
		t.Fatalf("expected trusted message to dispatch, got %d", pings)
	}
	if agent.ActiveOrigin() != "https://app.example.com" {
		t.Fatalf("expected active origin bound, got %q", agent.ActiveOrigin())
	}
}

func TestUnload_SkipsNonNavigatingLinks(t *testing.T) {
	h := newHarness(t, nil)
	agent := New(h.child, Config{ACLs: []string{consumerOrigin}})
	defer agent.Close()

	var published atomic.Int32
	agent.Bus().On(events.Unload, func(context.Context, events.Event) { published.Add(1) })

	doc := h.child.Document()
	for _, attrs := range []map[string]string{
		{"href": "tel:5555555"},
		{"href": "mailto:someone@example.com"},
		{"href": "https://example.com/report.pdf", "download": ""},
	} {
		link := doc.CreateElement("a")
		for key, value := range attrs {
			link.SetAttribute(key, value)
		}
		doc.Focus(link)
		agent.Unload()
	}
	if agent.State() == StateUnloaded {
		t.Fatalf("expected non-navigating links to be ignored")
	}
	if published.Load() != 0 {
		t.Fatalf("expected no local unload event for non-navigating links, got %d", published.Load())
	}

	link := doc.CreateElement("a")
	link.SetAttribute("href", "https://example.com/")
	doc.Focus(link)
	agent.Unload()
	agent.Unload()

	h.waitFor(t, MethodUnload)
	time.Sleep(50 * time.Millisecond)
	if h.count(MethodUnload) != 1 || h.events(events.Unload) != 1 {
		t.Fatalf("expected exactly one unload notification and event, got %d/%d",
			h.count(MethodUnload), h.events(events.Unload))
	}
	if published.Load() != 1 {
		t.Fatalf("expected one local unload event, got %d", published.Load())
	}
	if agent.State() != StateUnloaded {
		t.Fatalf("expected unloaded, got %s", agent.State())
	}
}

func TestResize_ConfiguredByConsumer(t *testing.T) {
	h := newHarness(t, map[string]rpc.Handler{
		MethodAuthorizeConsumer: func(context.Context, rpc.Params) (any, error) { return "hello", nil },
	})
	h.child.Document().Body().SetBox(dom.Box{OffsetHeight: 120, MarginTop: 5, MarginBottom: 5})

	agent := New(h.child, Config{ACLs: []string{consumerOrigin}})
	defer agent.Close()
	ctx := testCtx(t)
	if err := agent.Launch(ctx); err != nil {
		t.Fatalf("launch: %v", err)
	}

	if err := h.channel.Notify(ctx, MethodResize, map[string]any{}); err != nil {
		t.Fatalf("notify resize: %v", err)
	}
	got := h.waitFor(t, MethodResize)
	var height string
	if err := got.params.Decode(&height); err != nil {
		t.Fatalf("decode resize: %v", err)
	}
	if height != "130px" {
		t.Fatalf("expected 130px, got %q", height)
	}
}

func TestTriggers_SendEventNotifications(t *testing.T) {
	h := newHarness(t, nil)
	agent := New(h.child, Config{ACLs: []string{consumerOrigin}})
	defer agent.Close()
	ctx := testCtx(t)

	if err := agent.Fullscreen(ctx, "https://app.example.com/full"); err != nil {
		t.Fatalf("fullscreen: %v", err)
	}
	got := h.waitFor(t, MethodEvent)
	var name, url string
	if err := got.params.Decode(&name, &url); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if name != events.Fullscreen || url != "https://app.example.com/full" {
		t.Fatalf("unexpected fullscreen event %q %q", name, url)
	}

	if err := agent.HTTPError(ctx, events.HTTPErrorDetail{"status": 404}); err != nil {
		t.Fatalf("http error: %v", err)
	}
	got = h.waitFor(t, MethodEvent)
	var detail map[string]any
	if err := got.params.Decode(&name, &detail); err != nil {
		t.Fatalf("decode http error: %v", err)
	}
	if name != events.ProviderHTTPError || detail["status"] != float64(404) {
		t.Fatalf("unexpected http error event %q %#v", name, detail)
	}

	if err := agent.LoadPage(ctx, "https://app.example.com/next"); err != nil {
		t.Fatalf("load page: %v", err)
	}
	got = h.waitFor(t, MethodLoadPage)
	if err := got.params.Decode(&url); err != nil || url != "https://app.example.com/next" {
		t.Fatalf("unexpected load page params %q (%v)", url, err)
	}

	if err := agent.Focus(ctx); err != nil {
		t.Fatalf("focus: %v", err)
	}
	h.waitFor(t, MethodSetFocus)
	if err := agent.Blur(ctx); err != nil {
		t.Fatalf("blur: %v", err)
	}
	h.waitFor(t, MethodSetBlur)
}

func TestEventFromConsumerReemittedOnBus(t *testing.T) {
	h := newHarness(t, map[string]rpc.Handler{
		MethodAuthorizeConsumer: func(context.Context, rpc.Params) (any, error) { return "hello", nil },
	})
	agent := New(h.child, Config{ACLs: []string{consumerOrigin}})
	defer agent.Close()
	ctx := testCtx(t)
	if err := agent.Launch(ctx); err != nil {
		t.Fatalf("launch: %v", err)
	}

	got := make(chan any, 1)
	agent.Bus().On("theme.changed", func(_ context.Context, evt events.Event) { got <- evt.Detail })
	if err := h.channel.Notify(ctx, MethodEvent, "theme.changed", map[string]any{"mode": "dark"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	select {
	case detail := <-got:
		mode, _ := detail.(map[string]any)
		if mode["mode"] != "dark" {
			t.Fatalf("unexpected detail %#v", detail)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for bus event")
	}
}

func TestCustomMethodsOverrideBuiltins(t *testing.T) {
	var custom int
	agent := New(transport.NewWindow(providerHref), Config{
		Methods: map[string]rpc.Handler{
			MethodEvent: func(context.Context, rpc.Params) (any, error) {
				custom++
				return nil, nil
			},
		},
	})
	defer agent.Close()

	agent.Channel().Handle(context.Background(), rpc.NewNotification(MethodEvent, []byte(`["x", null]`)))
	if custom != 1 {
		t.Fatalf("expected custom handler to win, got %d calls", custom)
	}
}

func TestConfigFromCore(t *testing.T) {
	cfg := ConfigFromCore(core.ProviderConfig{ACLs: []string{"https://a.example.com"}, Secret: "s3"})
	if cfg.Secret == nil || len(cfg.ACLs) != 1 {
		t.Fatalf("unexpected config %#v", cfg)
	}
	if ok, _ := cfg.Secret.Verify(context.Background(), "s3"); !ok {
		t.Fatalf("expected secret to verify")
	}
	if ConfigFromCore(core.ProviderConfig{}).Secret != nil {
		t.Fatalf("expected empty secret to disable the challenge")
	}
}
