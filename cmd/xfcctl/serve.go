package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	xfc "github.com/goliatone/go-xfc"
	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/provider"
	"github.com/goliatone/go-xfc/transport"
	"github.com/goliatone/go-xfc/transport/wsbridge"
)

type serveOptions struct {
	addr string
	path string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve provider frames over the websocket bridge",
		Long:  "Accepts websocket bridge connections and runs a provider agent for each frame,\nauthorizing the remote consumer against provider.acls.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load(cmd.Context())
			if err != nil {
				return fmt.Errorf("resolve config: %w", err)
			}
			logger := newCLILogger(cmd.ErrOrStderr(), root.verbose)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			listener, err := net.Listen("tcp", opts.addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", opts.addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving %s on ws://%s%s\n", cfg.Name, listener.Addr(), opts.path)
			return serveFrames(ctx, listener, opts.path, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8787", "Listen address")
	cmd.Flags().StringVar(&opts.path, "path", "/xfc", "Bridge endpoint path")
	return cmd
}

// frameHost runs one provider agent per bridged frame. An agent is released
// when its frame window closes.
type frameHost struct {
	cfg    xfc.Config
	logger core.Logger
	ctx    context.Context

	mu     sync.Mutex
	agents map[*provider.Agent]struct{}
}

func newFrameHost(ctx context.Context, cfg xfc.Config, logger core.Logger) *frameHost {
	return &frameHost{cfg: cfg, logger: logger, ctx: ctx, agents: map[*provider.Agent]struct{}{}}
}

func (h *frameHost) boot(child *transport.Window) {
	agent := xfc.NewProvider(child, h.cfg,
		provider.WithLogger(h.logger),
		provider.WithResizeInterval(h.cfg.Resize.DebounceInterval()),
	)
	h.mu.Lock()
	h.agents[agent] = struct{}{}
	h.mu.Unlock()
	go func() {
		if err := agent.Launch(h.ctx); err != nil {
			h.logger.Warn("xfcctl: provider launch failed", "provider", agent.ID(), "error", err)
		}
	}()
	go func() {
		select {
		case <-child.Done():
		case <-h.ctx.Done():
		}
		h.release(agent)
	}()
}

func (h *frameHost) release(agent *provider.Agent) {
	h.mu.Lock()
	_, ok := h.agents[agent]
	delete(h.agents, agent)
	h.mu.Unlock()
	if ok {
		agent.Close()
	}
}

func (h *frameHost) active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.agents)
}

func (h *frameHost) close() {
	h.mu.Lock()
	agents := h.agents
	h.agents = map[*provider.Agent]struct{}{}
	h.mu.Unlock()
	for agent := range agents {
		agent.Close()
	}
}

func serveFrames(ctx context.Context, listener net.Listener, path string, cfg xfc.Config, logger core.Logger) error {
	host := newFrameHost(ctx, cfg, logger)
	defer host.close()

	mux := http.NewServeMux()
	mux.Handle(path, wsbridge.NewServer(host.boot,
		wsbridge.WithLogger(logger),
		wsbridge.WithOriginPatterns(originPatterns(cfg.Provider.ACLs)...),
	))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errs := make(chan error, 1)
	go func() { errs <- server.Serve(listener) }()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// originPatterns maps provider ACL entries to websocket host patterns.
func originPatterns(acl []string) []string {
	patterns := make([]string, 0, len(acl))
	for _, entry := range acl {
		entry = strings.TrimSpace(entry)
		if _, rest, ok := strings.Cut(entry, "://"); ok {
			entry = rest
		}
		if entry != "" {
			patterns = append(patterns, entry)
		}
	}
	return patterns
}
