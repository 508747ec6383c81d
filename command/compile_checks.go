package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[MountFrameMessage]           = (*MountFrameCommand)(nil)
	_ gocmd.Commander[UnmountFrameMessage]         = (*UnmountFrameCommand)(nil)
	_ gocmd.Commander[LoadFrameMessage]            = (*LoadFrameCommand)(nil)
	_ gocmd.Commander[TriggerFrameEventMessage]    = (*TriggerFrameEventCommand)(nil)
	_ gocmd.Commander[InvokeFrameMethodMessage]    = (*InvokeFrameMethodCommand)(nil)
	_ gocmd.Commander[LaunchProviderMessage]       = (*LaunchProviderCommand)(nil)
	_ gocmd.Commander[TriggerProviderEventMessage] = (*TriggerProviderEventCommand)(nil)
)
