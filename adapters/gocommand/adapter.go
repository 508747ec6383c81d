package gocommand

import (
	"context"
	"net/http"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	goerrors "github.com/goliatone/go-errors"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	xfccommand "github.com/goliatone/go-xfc/command"
	"github.com/goliatone/go-xfc/consumer"
	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/provider"
	"github.com/goliatone/go-xfc/query"
)

// ValidateMessageContract enforces Type() plus the optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := gocmd.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(gocmd.Message)
	if !ok {
		return adapterError("gocommand: message must implement Type() string", goerrors.CategoryBadInput)
	}
	if strings.TrimSpace(m.Type()) == "" {
		return adapterError("gocommand: message type is required", goerrors.CategoryBadInput)
	}
	return nil
}

type RegistryAdapter struct {
	registry *gocmd.Registry
}

func NewRegistryAdapter(registry *gocmd.Registry) *RegistryAdapter {
	if registry == nil {
		registry = gocmd.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *gocmd.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) ready() error {
	if a == nil || a.registry == nil {
		return adapterError("gocommand: registry is not configured", goerrors.CategoryInternal)
	}
	return nil
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver gocmd.Resolver) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors every registered command into a go-job queue
// registry so frame commands can be replayed from a worker.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return adapterError("gocommand: queue registry is required", goerrors.CategoryBadInput)
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd gocmd.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry gocmd.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd gocmd.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if err := adapter.ready(); err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, adapterError("gocommand: command is required", goerrors.CategoryBadInput)
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry gocmd.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if err := adapter.ready(); err != nil {
		return nil, err
	}
	if qry == nil {
		return nil, adapterError("gocommand: query is required", goerrors.CategoryBadInput)
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// Services groups the collaborators behind the xfc commands and queries.
// Nil members skip the handlers that depend on them.
type Services struct {
	Frames         xfccommand.FrameService
	Providers      xfccommand.ProviderService
	FrameReader    query.FrameReader
	ProviderReader query.ProviderReader
}

// Bindings tracks the dispatcher subscriptions created by Bind.
type Bindings struct {
	subscriptions []commanddispatcher.Subscription
}

func (b *Bindings) add(subscription commanddispatcher.Subscription, err error) error {
	if err != nil {
		return err
	}
	b.subscriptions = append(b.subscriptions, subscription)
	return nil
}

func (b *Bindings) Len() int {
	if b == nil {
		return 0
	}
	return len(b.subscriptions)
}

func (b *Bindings) Unsubscribe() {
	if b == nil {
		return
	}
	for _, subscription := range b.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	b.subscriptions = nil
}

// Bind registers and subscribes every xfc command and query handler backed
// by services. On failure the subscriptions made so far are released.
func Bind(adapter *RegistryAdapter, services Services, runnerOpts ...runner.Option) (*Bindings, error) {
	if err := adapter.ready(); err != nil {
		return nil, err
	}
	b := &Bindings{}
	if err := b.bind(adapter, services, runnerOpts); err != nil {
		b.Unsubscribe()
		return nil, err
	}
	return b, nil
}

func (b *Bindings) bind(adapter *RegistryAdapter, services Services, opts []runner.Option) error {
	if err := b.add(RegisterAndSubscribeQuery[query.MatchOriginMessage, query.MatchResult](adapter, query.NewMatchOriginQuery(), opts...)); err != nil {
		return err
	}

	if frames := services.Frames; frames != nil {
		if err := b.add(RegisterAndSubscribe[xfccommand.MountFrameMessage](adapter, xfccommand.NewMountFrameCommand(frames), opts...)); err != nil {
			return err
		}
		if err := b.add(RegisterAndSubscribe[xfccommand.UnmountFrameMessage](adapter, xfccommand.NewUnmountFrameCommand(frames), opts...)); err != nil {
			return err
		}
		if err := b.add(RegisterAndSubscribe[xfccommand.LoadFrameMessage](adapter, xfccommand.NewLoadFrameCommand(frames), opts...)); err != nil {
			return err
		}
		if err := b.add(RegisterAndSubscribe[xfccommand.TriggerFrameEventMessage](adapter, xfccommand.NewTriggerFrameEventCommand(frames), opts...)); err != nil {
			return err
		}
		if err := b.add(RegisterAndSubscribe[xfccommand.InvokeFrameMethodMessage](adapter, xfccommand.NewInvokeFrameMethodCommand(frames), opts...)); err != nil {
			return err
		}
	}

	if providers := services.Providers; providers != nil {
		if err := b.add(RegisterAndSubscribe[xfccommand.LaunchProviderMessage](adapter, xfccommand.NewLaunchProviderCommand(providers), opts...)); err != nil {
			return err
		}
		if err := b.add(RegisterAndSubscribe[xfccommand.TriggerProviderEventMessage](adapter, xfccommand.NewTriggerProviderEventCommand(providers), opts...)); err != nil {
			return err
		}
	}

	if reader := services.FrameReader; reader != nil {
		if err := b.add(RegisterAndSubscribeQuery[query.GetFrameMessage, consumer.FrameInfo](adapter, query.NewGetFrameQuery(reader), opts...)); err != nil {
			return err
		}
		if err := b.add(RegisterAndSubscribeQuery[query.ListFramesMessage, []consumer.FrameInfo](adapter, query.NewListFramesQuery(reader), opts...)); err != nil {
			return err
		}
	}

	if reader := services.ProviderReader; reader != nil {
		if err := b.add(RegisterAndSubscribeQuery[query.GetProviderMessage, provider.Info](adapter, query.NewGetProviderQuery(reader), opts...)); err != nil {
			return err
		}
		if err := b.add(RegisterAndSubscribeQuery[query.ListProvidersMessage, []provider.Info](adapter, query.NewListProvidersQuery(reader), opts...)); err != nil {
			return err
		}
	}
	return nil
}

func adapterError(message string, category goerrors.Category) error {
	code := http.StatusBadRequest
	textCode := core.ErrorBadInput
	if category == goerrors.CategoryInternal {
		code = http.StatusInternalServerError
		textCode = core.ErrorInternal
	}
	return goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
}
