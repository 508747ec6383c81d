package xfc

import (
	"github.com/goliatone/go-xfc/transport"
	"github.com/goliatone/go-xfc/transport/wsbridge"
)

// NewTransportRegistry returns a registry holding the memory and websocket
// bridge kinds.
func NewTransportRegistry(opts ...wsbridge.Option) (*transport.Registry, error) {
	registry := transport.NewDefaultRegistry()
	if err := wsbridge.Register(registry, opts...); err != nil {
		return nil, err
	}
	return registry, nil
}

// OpenHost creates the top-level window of a consumer page. Iframes loaded
// in it open through the bridge kind named by cfg.
func OpenHost(href string, cfg BridgeConfig, registry *transport.Registry, opts ...transport.Option) (*transport.Window, error) {
	if registry == nil {
		var err error
		if registry, err = NewTransportRegistry(); err != nil {
			return nil, err
		}
	}
	factory, err := registry.Build(cfg.Kind, map[string]any{"url": cfg.URL})
	if err != nil {
		return nil, err
	}
	if factory != nil {
		opts = append(opts, transport.WithFrameFactory(factory))
	}
	return transport.NewWindow(href, opts...), nil
}
