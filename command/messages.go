package command

import (
	"strings"

	"github.com/goliatone/go-xfc/consumer"
	"github.com/goliatone/go-xfc/dom"
)

const (
	TypeMountFrame           = "xfc.command.frame.mount"
	TypeUnmountFrame         = "xfc.command.frame.unmount"
	TypeLoadFrame            = "xfc.command.frame.load"
	TypeTriggerFrameEvent    = "xfc.command.frame.trigger"
	TypeInvokeFrameMethod    = "xfc.command.frame.invoke"
	TypeLaunchProvider       = "xfc.command.provider.launch"
	TypeTriggerProviderEvent = "xfc.command.provider.trigger"
)

type MountFrameMessage struct {
	Container *dom.Element
	Source    string
	Options   []consumer.Option
}

func (MountFrameMessage) Type() string { return TypeMountFrame }

func (m MountFrameMessage) Validate() error {
	if m.Container == nil {
		return commandValidationError("container", "container is required")
	}
	if strings.TrimSpace(m.Source) == "" {
		return commandValidationError("source", "source is required")
	}
	return nil
}

type UnmountFrameMessage struct {
	FrameID string
}

func (UnmountFrameMessage) Type() string { return TypeUnmountFrame }

func (m UnmountFrameMessage) Validate() error {
	return requireFrameID(m.FrameID)
}

type LoadFrameMessage struct {
	FrameID string
	URL     string
}

func (LoadFrameMessage) Type() string { return TypeLoadFrame }

func (m LoadFrameMessage) Validate() error {
	if err := requireFrameID(m.FrameID); err != nil {
		return err
	}
	if strings.TrimSpace(m.URL) == "" {
		return commandValidationError("url", "url is required")
	}
	return nil
}

type TriggerFrameEventMessage struct {
	FrameID string
	Event   string
	Detail  any
}

func (TriggerFrameEventMessage) Type() string { return TypeTriggerFrameEvent }

func (m TriggerFrameEventMessage) Validate() error {
	if err := requireFrameID(m.FrameID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Event) == "" {
		return commandValidationError("event", "event is required")
	}
	return nil
}

type InvokeFrameMethodMessage struct {
	FrameID string
	Method  string
	Params  []any
}

func (InvokeFrameMethodMessage) Type() string { return TypeInvokeFrameMethod }

func (m InvokeFrameMethodMessage) Validate() error {
	if err := requireFrameID(m.FrameID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Method) == "" {
		return commandValidationError("method", "method is required")
	}
	return nil
}

type LaunchProviderMessage struct {
	ProviderID string
}

func (LaunchProviderMessage) Type() string { return TypeLaunchProvider }

func (m LaunchProviderMessage) Validate() error {
	return requireProviderID(m.ProviderID)
}

type TriggerProviderEventMessage struct {
	ProviderID string
	Event      string
	Detail     any
}

func (TriggerProviderEventMessage) Type() string { return TypeTriggerProviderEvent }

func (m TriggerProviderEventMessage) Validate() error {
	if err := requireProviderID(m.ProviderID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Event) == "" {
		return commandValidationError("event", "event is required")
	}
	return nil
}

func requireFrameID(id string) error {
	if strings.TrimSpace(id) == "" {
		return commandValidationError("frame_id", "frame id is required")
	}
	return nil
}

func requireProviderID(id string) error {
	if strings.TrimSpace(id) == "" {
		return commandValidationError("provider_id", "provider id is required")
	}
	return nil
}
