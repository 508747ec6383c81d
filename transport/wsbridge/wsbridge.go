// Package wsbridge relays postMessage traffic between a consumer window and
// a provider window living in different processes. The consumer side dials
// and acts as a transport.FrameFactory; the provider side serves HTTP and
// boots a child window per connection.
package wsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/origin"
	"github.com/goliatone/go-xfc/transport"
)

const (
	kindHello   = "hello"
	kindMessage = "message"

	defaultWriteTimeout = 5 * time.Second
)

// Message is the wire frame exchanged over the socket.
type Message struct {
	Kind         string          `json:"kind"`
	Href         string          `json:"href,omitempty"`
	Src          string          `json:"src,omitempty"`
	Origin       string          `json:"origin,omitempty"`
	TargetOrigin string          `json:"target_origin,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

type Option func(*settings)

type settings struct {
	logger         core.Logger
	originPatterns []string
	writeTimeout   time.Duration
	httpClient     *http.Client
}

func WithLogger(logger core.Logger) Option {
	return func(s *settings) { s.logger = glog.Ensure(logger) }
}

// WithOriginPatterns sets the websocket origin patterns the server accepts.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *settings) { s.originPatterns = append([]string(nil), patterns...) }
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.writeTimeout = timeout
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) { s.httpClient = client }
}

func newSettings(opts []Option) settings {
	s := settings{logger: glog.Nop(), writeTimeout: defaultWriteTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// peer owns one socket and the proxy window standing for the far side.
type peer struct {
	conn     *websocket.Conn
	settings settings
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
}

func newPeer(conn *websocket.Conn, s settings) *peer {
	ctx, cancel := context.WithCancel(context.Background())
	return &peer{conn: conn, settings: s, ctx: ctx, cancel: cancel}
}

func (p *peer) forward(from *transport.Window, data []byte, targetOrigin string) error {
	if !json.Valid(data) {
		return fmt.Errorf("wsbridge: payload is not JSON")
	}
	ctx, cancel := context.WithTimeout(p.ctx, p.settings.writeTimeout)
	defer cancel()
	err := wsjson.Write(ctx, p.conn, Message{
		Kind:         kindMessage,
		Origin:       from.Origin(),
		TargetOrigin: targetOrigin,
		Data:         json.RawMessage(data),
	})
	if err != nil {
		p.settings.logger.Warn("wsbridge: write failed", "error", err)
		p.close("write_failed")
	}
	return err
}

// pump delivers inbound frames from remote into local until the socket
// closes.
func (p *peer) pump(remote *transport.Window, local *transport.Window) {
	defer p.close("closed")
	for {
		var msg Message
		if err := wsjson.Read(p.ctx, p.conn, &msg); err != nil {
			p.settings.logger.Debug("wsbridge: read stopped", "error", err)
			return
		}
		if msg.Kind != kindMessage {
			continue
		}
		if msg.Origin != remote.Origin() {
			p.settings.logger.Warn("wsbridge: frame origin mismatch",
				"origin", msg.Origin, "expected", remote.Origin())
			continue
		}
		if err := remote.Handle(local).PostMessage(msg.Data, msg.TargetOrigin); err != nil {
			p.settings.logger.Warn("wsbridge: delivery failed", "error", err)
		}
	}
}

func (p *peer) close(reason string) {
	p.once.Do(func() {
		p.cancel()
		_ = p.conn.Close(websocket.StatusNormalClosure, reason)
	})
}

// Server accepts consumer connections and boots a provider window for each.
type Server struct {
	boot     func(child *transport.Window)
	settings settings
}

func NewServer(boot func(child *transport.Window), opts ...Option) *Server {
	return &Server{boot: boot, settings: newSettings(opts)}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.settings.originPatterns,
	})
	if err != nil {
		s.settings.logger.Warn("wsbridge: accept failed", "error", err)
		return
	}
	p := newPeer(conn, s.settings)

	var hello Message
	if err := wsjson.Read(r.Context(), conn, &hello); err != nil || hello.Kind != kindHello {
		s.settings.logger.Warn("wsbridge: missing hello", "error", err)
		p.close("hello_required")
		return
	}
	if strings.TrimSpace(hello.Href) == "" || strings.TrimSpace(hello.Src) == "" {
		p.close("hello_incomplete")
		return
	}
	if declared := r.Header.Get("Origin"); declared != "" && origin.FromURL(declared) != origin.FromURL(hello.Href) {
		s.settings.logger.Warn("wsbridge: hello origin does not match request origin",
			"origin", declared, "href", hello.Href)
		p.close("origin_mismatch")
		return
	}

	parent := transport.NewRemoteWindow(hello.Href, p.forward, transport.WithLogger(s.settings.logger))
	child := transport.NewWindow(hello.Src,
		transport.WithParent(parent),
		transport.WithLogger(s.settings.logger),
		transport.WithOnClose(func() { p.close("unloaded") }),
	)
	defer child.Close()
	if s.boot != nil {
		s.boot(child)
	}
	s.settings.logger.Info("wsbridge: frame connected", "parent", parent.Origin(), "src", hello.Src)
	p.pump(parent, child)
}

// Dialer opens provider frames served by a Server.
type Dialer struct {
	// URL is the websocket endpoint. When empty it is derived from the
	// frame source by switching http(s) to ws(s).
	URL      string
	settings settings
}

func NewDialer(url string, opts ...Option) *Dialer {
	return &Dialer{URL: strings.TrimSpace(url), settings: newSettings(opts)}
}

// Open satisfies transport.FrameFactory.
func (d *Dialer) Open(parent *transport.Window, src string) (*transport.Window, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	endpoint := d.endpoint(src)
	conn, _, err := websocket.Dial(ctx, endpoint, &websocket.DialOptions{HTTPClient: d.settings.httpClient})
	if err != nil {
		return nil, fmt.Errorf("wsbridge: dial %s: %w", endpoint, err)
	}
	p := newPeer(conn, d.settings)
	if err := wsjson.Write(ctx, conn, Message{Kind: kindHello, Href: parent.Location(), Src: src}); err != nil {
		p.close("hello_failed")
		return nil, fmt.Errorf("wsbridge: send hello: %w", err)
	}

	child := transport.NewRemoteWindow(src, p.forward,
		transport.WithParent(parent),
		transport.WithLogger(d.settings.logger),
		transport.WithOnClose(func() { p.close("unmounted") }),
	)
	go func() {
		p.pump(child, parent)
		child.Close()
	}()
	return child, nil
}

func (d *Dialer) endpoint(src string) string {
	if d.URL != "" {
		return d.URL
	}
	switch {
	case strings.HasPrefix(src, "https://"):
		return "wss://" + strings.TrimPrefix(src, "https://")
	case strings.HasPrefix(src, "http://"):
		return "ws://" + strings.TrimPrefix(src, "http://")
	default:
		return src
	}
}

// Register adds the websocket bridge kind to registry. The kind reads an
// optional "url" entry from its config.
func Register(registry *transport.Registry, opts ...Option) error {
	return registry.Register(transport.KindWebSocket, func(config map[string]any) (transport.FrameFactory, error) {
		url, _ := config["url"].(string)
		return NewDialer(url, opts...).Open, nil
	})
}
