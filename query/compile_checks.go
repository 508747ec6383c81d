package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-xfc/consumer"
	"github.com/goliatone/go-xfc/provider"
)

var (
	_ gocmd.Querier[GetFrameMessage, consumer.FrameInfo]     = (*GetFrameQuery)(nil)
	_ gocmd.Querier[ListFramesMessage, []consumer.FrameInfo] = (*ListFramesQuery)(nil)
	_ gocmd.Querier[GetProviderMessage, provider.Info]       = (*GetProviderQuery)(nil)
	_ gocmd.Querier[ListProvidersMessage, []provider.Info]   = (*ListProvidersQuery)(nil)
	_ gocmd.Querier[MatchOriginMessage, MatchResult]         = (*MatchOriginQuery)(nil)
)
