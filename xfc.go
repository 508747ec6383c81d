// Package xfc embeds applications across origins. A consumer page mounts
// frames that load providers; both sides authorize each other before any
// custom remote call is accepted.
package xfc

import (
	"context"

	"github.com/goliatone/go-xfc/consumer"
	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/provider"
)

type Config = core.Config
type ProviderConfig = core.ProviderConfig
type ConsumerConfig = core.ConsumerConfig
type BridgeConfig = core.BridgeConfig
type RawConfigLoader = core.RawConfigLoader
type YAMLFileLoader = core.YAMLFileLoader
type StaticConfigLoader = core.StaticConfigLoader

type Frame = consumer.Frame
type FrameInfo = consumer.FrameInfo
type Agent = provider.Agent
type AgentInfo = provider.Info

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// LoadConfig resolves defaults, the loader and runtime overrides.
func LoadConfig(ctx context.Context, loader RawConfigLoader, runtime Config) (Config, error) {
	return core.LoadConfig(ctx, loader, runtime)
}

// NewProvider builds the agent of an embedded page from file configuration.
func NewProvider(host provider.Host, cfg Config, opts ...provider.Option) *provider.Agent {
	return provider.New(host, provider.ConfigFromCore(cfg.Provider), opts...)
}

// FrameOptions maps the consumer section of cfg to frame options.
func FrameOptions(cfg Config) []consumer.Option {
	return consumer.OptionsFromCore(cfg.Consumer)
}
