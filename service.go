package xfc

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-xfc/consumer"
	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/dom"
	"github.com/goliatone/go-xfc/provider"
	"github.com/goliatone/go-xfc/transport"
)

// Service tracks the frames mounted by one consumer page and the provider
// agents running in the process. It backs the command and query handlers.
type Service struct {
	consumer *consumer.Consumer
	hooks    *ExtensionHooks
	observer core.Observer

	mu        sync.RWMutex
	providers map[string]*provider.Agent
	order     []string
}

type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	handlers       consumer.Handlers
	defaults       []consumer.Option
	hooks          *ExtensionHooks
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
}

// WithHandlers subscribes handlers on every mounted frame.
func WithHandlers(handlers consumer.Handlers) ServiceOption {
	return func(o *serviceOptions) { o.handlers = handlers }
}

// WithFrameDefaults applies opts to every mounted frame before the
// per-mount options.
func WithFrameDefaults(opts ...consumer.Option) ServiceOption {
	return func(o *serviceOptions) { o.defaults = append(o.defaults, opts...) }
}

func WithExtensionHooks(hooks *ExtensionHooks) ServiceOption {
	return func(o *serviceOptions) { o.hooks = hooks }
}

func WithLogger(logger core.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) ServiceOption {
	return func(o *serviceOptions) { o.loggerProvider = provider }
}

func WithMetricsRecorder(metrics core.MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) { o.metrics = metrics }
}

func NewService(host *transport.Window, opts ...ServiceOption) (*Service, error) {
	if host == nil {
		return nil, core.NewError("xfc: host window is required", goerrors.CategoryBadInput, core.ErrorBadInput, nil)
	}
	cfg := serviceOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	hooks := cfg.hooks
	if hooks == nil {
		hooks = NewExtensionHooks()
	}
	return &Service{
		consumer:  consumer.NewConsumer(host, cfg.handlers, cfg.defaults...),
		hooks:     hooks,
		observer:  core.NewObserver("xfc.service", cfg.loggerProvider, cfg.logger, cfg.metrics),
		providers: map[string]*provider.Agent{},
	}, nil
}

func (s *Service) Consumer() *consumer.Consumer { return s.consumer }

func (s *Service) Hooks() *ExtensionHooks { return s.hooks }

// MountFrame mounts a frame whose custom methods start from the consumer
// method packs; opts may replace any of them.
func (s *Service) MountFrame(ctx context.Context, container *dom.Element, source string, opts ...consumer.Option) (info consumer.FrameInfo, err error) {
	startedAt := time.Now()
	defer func() {
		s.observer.Observe(ctx, startedAt, "frame.mount", err, map[string]any{"source": source, "frame_id": info.ID})
	}()

	mountOpts := make([]consumer.Option, 0, len(opts)+1)
	if methods := s.hooks.ConsumerMethods(); len(methods) > 0 {
		mountOpts = append(mountOpts, consumer.WithMethods(methods))
	}
	mountOpts = append(mountOpts, opts...)

	frame, err := s.consumer.Mount(ctx, container, source, mountOpts...)
	if err != nil {
		return consumer.FrameInfo{}, err
	}
	return frame.Info(), nil
}

func (s *Service) UnmountFrame(ctx context.Context, frameID string) (err error) {
	startedAt := time.Now()
	defer func() {
		s.observer.Observe(ctx, startedAt, "frame.unmount", err, map[string]any{"frame_id": frameID})
	}()
	return s.consumer.Unmount(ctx, frameID)
}

func (s *Service) LoadFrame(ctx context.Context, frameID string, url string) error {
	frame, err := s.frame(frameID)
	if err != nil {
		return err
	}
	return frame.Load(ctx, url)
}

func (s *Service) TriggerFrameEvent(ctx context.Context, frameID string, event string, detail any) error {
	frame, err := s.frame(frameID)
	if err != nil {
		return err
	}
	return frame.Trigger(ctx, event, detail)
}

// InvokeFrameMethod calls a provider method through a frame and waits for
// the response or ctx.
func (s *Service) InvokeFrameMethod(ctx context.Context, frameID string, method string, params ...any) (json.RawMessage, error) {
	frame, err := s.frame(frameID)
	if err != nil {
		return nil, err
	}
	return frame.Invoke(ctx, method, params...).Wait(ctx)
}

func (s *Service) GetFrame(_ context.Context, frameID string) (consumer.FrameInfo, error) {
	frame, err := s.frame(frameID)
	if err != nil {
		return consumer.FrameInfo{}, err
	}
	return frame.Info(), nil
}

func (s *Service) ListFrames(context.Context) ([]consumer.FrameInfo, error) {
	frames := s.consumer.Frames()
	out := make([]consumer.FrameInfo, 0, len(frames))
	for _, frame := range frames {
		out = append(out, frame.Info())
	}
	return out, nil
}

// NewProvider builds and tracks an agent for host. Provider method packs
// are registered first; cfg.Methods may replace any of them.
func (s *Service) NewProvider(host provider.Host, cfg provider.Config, opts ...provider.Option) *provider.Agent {
	methods := s.hooks.ProviderMethods()
	for name, handler := range cfg.Methods {
		methods[name] = handler
	}
	cfg.Methods = methods

	agent := provider.New(host, cfg, opts...)
	_ = s.RegisterProvider(agent)
	return agent
}

// RegisterProvider tracks an agent built elsewhere.
func (s *Service) RegisterProvider(agent *provider.Agent) error {
	if agent == nil {
		return core.NewError("xfc: provider agent is required", goerrors.CategoryBadInput, core.ErrorBadInput, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.providers[agent.ID()]; exists {
		return core.NewError("xfc: provider already registered", goerrors.CategoryConflict, core.ErrorBadInput, map[string]any{
			"provider_id": agent.ID(),
		})
	}
	s.providers[agent.ID()] = agent
	s.order = append(s.order, agent.ID())
	return nil
}

// RemoveProvider closes and forgets an agent.
func (s *Service) RemoveProvider(providerID string) error {
	agent, err := s.provider(providerID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.providers, providerID)
	for i, id := range s.order {
		if id == providerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	agent.Close()
	return nil
}

func (s *Service) LaunchProvider(ctx context.Context, providerID string) (err error) {
	startedAt := time.Now()
	defer func() {
		s.observer.Observe(ctx, startedAt, "provider.launch", err, map[string]any{"provider_id": providerID})
	}()
	agent, err := s.provider(providerID)
	if err != nil {
		return err
	}
	return agent.Launch(ctx)
}

func (s *Service) TriggerProviderEvent(ctx context.Context, providerID string, event string, detail any) error {
	agent, err := s.provider(providerID)
	if err != nil {
		return err
	}
	return agent.Trigger(ctx, event, detail)
}

func (s *Service) GetProvider(_ context.Context, providerID string) (provider.Info, error) {
	agent, err := s.provider(providerID)
	if err != nil {
		return provider.Info{}, err
	}
	return agent.Info(), nil
}

func (s *Service) ListProviders(context.Context) ([]provider.Info, error) {
	s.mu.RLock()
	agents := make([]*provider.Agent, 0, len(s.order))
	for _, id := range s.order {
		agents = append(agents, s.providers[id])
	}
	s.mu.RUnlock()

	out := make([]provider.Info, 0, len(agents))
	for _, agent := range agents {
		out = append(out, agent.Info())
	}
	return out, nil
}

// Close unmounts every frame and closes every tracked agent.
func (s *Service) Close(ctx context.Context) {
	s.consumer.Close(ctx)

	s.mu.Lock()
	agents := make([]*provider.Agent, 0, len(s.providers))
	for _, agent := range s.providers {
		agents = append(agents, agent)
	}
	s.providers = map[string]*provider.Agent{}
	s.order = nil
	s.mu.Unlock()

	for _, agent := range agents {
		agent.Close()
	}
	s.observer.Info(ctx, "xfc service closed", map[string]any{"providers": len(agents)})
}

func (s *Service) frame(frameID string) (*consumer.Frame, error) {
	frameID = strings.TrimSpace(frameID)
	if frame, ok := s.consumer.Frame(frameID); ok {
		return frame, nil
	}
	return nil, notFound("frame", frameID)
}

func (s *Service) provider(providerID string) (*provider.Agent, error) {
	providerID = strings.TrimSpace(providerID)
	s.mu.RLock()
	agent, ok := s.providers[providerID]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound("provider", providerID)
	}
	return agent, nil
}

func notFound(kind string, id string) error {
	return core.NewError("xfc: "+kind+" not found", goerrors.CategoryNotFound, core.ErrorBadInput, map[string]any{
		kind + "_id": id,
	})
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
