package command

import (
	"context"
	"encoding/json"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-xfc/consumer"
	"github.com/goliatone/go-xfc/dom"
)

type FrameService interface {
	MountFrame(ctx context.Context, container *dom.Element, source string, opts ...consumer.Option) (consumer.FrameInfo, error)
	UnmountFrame(ctx context.Context, frameID string) error
	LoadFrame(ctx context.Context, frameID string, url string) error
	TriggerFrameEvent(ctx context.Context, frameID string, event string, detail any) error
	InvokeFrameMethod(ctx context.Context, frameID string, method string, params ...any) (json.RawMessage, error)
}

type ProviderService interface {
	LaunchProvider(ctx context.Context, providerID string) error
	TriggerProviderEvent(ctx context.Context, providerID string, event string, detail any) error
}

type MountFrameCommand struct {
	service FrameService
}

func NewMountFrameCommand(service FrameService) *MountFrameCommand {
	return &MountFrameCommand{service: service}
}

func (c *MountFrameCommand) Execute(ctx context.Context, msg MountFrameMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: frame service is required")
	}
	out, err := c.service.MountFrame(ctx, msg.Container, msg.Source, msg.Options...)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UnmountFrameCommand struct {
	service FrameService
}

func NewUnmountFrameCommand(service FrameService) *UnmountFrameCommand {
	return &UnmountFrameCommand{service: service}
}

func (c *UnmountFrameCommand) Execute(ctx context.Context, msg UnmountFrameMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: frame service is required")
	}
	return c.service.UnmountFrame(ctx, msg.FrameID)
}

type LoadFrameCommand struct {
	service FrameService
}

func NewLoadFrameCommand(service FrameService) *LoadFrameCommand {
	return &LoadFrameCommand{service: service}
}

func (c *LoadFrameCommand) Execute(ctx context.Context, msg LoadFrameMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: frame service is required")
	}
	return c.service.LoadFrame(ctx, msg.FrameID, msg.URL)
}

type TriggerFrameEventCommand struct {
	service FrameService
}

func NewTriggerFrameEventCommand(service FrameService) *TriggerFrameEventCommand {
	return &TriggerFrameEventCommand{service: service}
}

func (c *TriggerFrameEventCommand) Execute(ctx context.Context, msg TriggerFrameEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: frame service is required")
	}
	return c.service.TriggerFrameEvent(ctx, msg.FrameID, msg.Event, msg.Detail)
}

// InvokeFrameMethodCommand waits for the provider's answer and stores the
// raw result.
type InvokeFrameMethodCommand struct {
	service FrameService
}

func NewInvokeFrameMethodCommand(service FrameService) *InvokeFrameMethodCommand {
	return &InvokeFrameMethodCommand{service: service}
}

func (c *InvokeFrameMethodCommand) Execute(ctx context.Context, msg InvokeFrameMethodMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: frame service is required")
	}
	out, err := c.service.InvokeFrameMethod(ctx, msg.FrameID, msg.Method, msg.Params...)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type LaunchProviderCommand struct {
	service ProviderService
}

func NewLaunchProviderCommand(service ProviderService) *LaunchProviderCommand {
	return &LaunchProviderCommand{service: service}
}

func (c *LaunchProviderCommand) Execute(ctx context.Context, msg LaunchProviderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: provider service is required")
	}
	return c.service.LaunchProvider(ctx, msg.ProviderID)
}

type TriggerProviderEventCommand struct {
	service ProviderService
}

func NewTriggerProviderEventCommand(service ProviderService) *TriggerProviderEventCommand {
	return &TriggerProviderEventCommand{service: service}
}

func (c *TriggerProviderEventCommand) Execute(ctx context.Context, msg TriggerProviderEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: provider service is required")
	}
	return c.service.TriggerProviderEvent(ctx, msg.ProviderID, msg.Event, msg.Detail)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
