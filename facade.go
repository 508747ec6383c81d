package xfc

import (
	"fmt"

	xfccommand "github.com/goliatone/go-xfc/command"
	"github.com/goliatone/go-xfc/query"
)

type CommandQueryService interface {
	xfccommand.FrameService
	xfccommand.ProviderService
	query.FrameReader
	query.ProviderReader
}

var _ CommandQueryService = (*Service)(nil)

type Commands struct {
	MountFrame           *xfccommand.MountFrameCommand
	UnmountFrame         *xfccommand.UnmountFrameCommand
	LoadFrame            *xfccommand.LoadFrameCommand
	TriggerFrameEvent    *xfccommand.TriggerFrameEventCommand
	InvokeFrameMethod    *xfccommand.InvokeFrameMethodCommand
	LaunchProvider       *xfccommand.LaunchProviderCommand
	TriggerProviderEvent *xfccommand.TriggerProviderEventCommand
}

type Queries struct {
	GetFrame      *query.GetFrameQuery
	ListFrames    *query.ListFramesQuery
	GetProvider   *query.GetProviderQuery
	ListProviders *query.ListProvidersQuery
	MatchOrigin   *query.MatchOriginQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
	bundles  map[string]any
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	frameReader    query.FrameReader
	providerReader query.ProviderReader
	hooks          *ExtensionHooks
}

// WithFrameReader serves frame queries from reader instead of the service.
func WithFrameReader(reader query.FrameReader) FacadeOption {
	return func(options *facadeOptions) {
		options.frameReader = reader
	}
}

func WithProviderReader(reader query.ProviderReader) FacadeOption {
	return func(options *facadeOptions) {
		options.providerReader = reader
	}
}

// WithBundles builds the command/query bundles registered on hooks.
func WithBundles(hooks *ExtensionHooks) FacadeOption {
	return func(options *facadeOptions) {
		options.hooks = hooks
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("xfc: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	frameReader := cfg.frameReader
	if frameReader == nil {
		frameReader = service
	}
	providerReader := cfg.providerReader
	if providerReader == nil {
		providerReader = service
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		MountFrame:           xfccommand.NewMountFrameCommand(service),
		UnmountFrame:         xfccommand.NewUnmountFrameCommand(service),
		LoadFrame:            xfccommand.NewLoadFrameCommand(service),
		TriggerFrameEvent:    xfccommand.NewTriggerFrameEventCommand(service),
		InvokeFrameMethod:    xfccommand.NewInvokeFrameMethodCommand(service),
		LaunchProvider:       xfccommand.NewLaunchProviderCommand(service),
		TriggerProviderEvent: xfccommand.NewTriggerProviderEventCommand(service),
	}
	facade.queries = Queries{
		GetFrame:      query.NewGetFrameQuery(frameReader),
		ListFrames:    query.NewListFramesQuery(frameReader),
		GetProvider:   query.NewGetProviderQuery(providerReader),
		ListProviders: query.NewListProvidersQuery(providerReader),
		MatchOrigin:   query.NewMatchOriginQuery(),
	}

	bundles, err := cfg.hooks.BuildCommandQueryBundles(service)
	if err != nil {
		return nil, err
	}
	facade.bundles = bundles
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// Bundle returns a command/query bundle built from the extension hooks.
func (f *Facade) Bundle(name string) (any, bool) {
	if f == nil {
		return nil, false
	}
	bundle, ok := f.bundles[name]
	return bundle, ok
}
