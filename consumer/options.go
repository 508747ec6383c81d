package consumer

import (
	"github.com/goliatone/go-xfc/core"
	"github.com/goliatone/go-xfc/events"
	"github.com/goliatone/go-xfc/rpc"
)

type Option func(*Frame)

// WithSecret is returned to providers that challenge this frame.
func WithSecret(secret string) Option {
	return func(f *Frame) { f.secret = secret }
}

func WithIframeAttrs(attrs map[string]string) Option {
	return func(f *Frame) {
		for name, value := range attrs {
			f.attrs[name] = value
		}
	}
}

// WithMethods registers custom methods after the built-ins. Methods that do
// not replace a built-in are refused until the provider is authorized.
func WithMethods(methods map[string]rpc.Handler) Option {
	return func(f *Frame) {
		for name, handler := range methods {
			f.methods[name] = handler
		}
	}
}

func WithFocusIndicator(indicator FocusIndicator) Option {
	return func(f *Frame) { f.focus = &indicator }
}

func WithResizeSettings(settings ResizeSettings) Option {
	return func(f *Frame) { f.sizing = settings }
}

func WithAuthorizer(authorizer Authorizer) Option {
	return func(f *Frame) { f.authorize = authorizer }
}

// WithBus shares a lifecycle bus with other components.
func WithBus(bus *events.Bus) Option {
	return func(f *Frame) {
		if bus != nil {
			f.bus = bus
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(f *Frame) { f.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(f *Frame) { f.loggerProvider = provider }
}

func WithMetricsRecorder(metrics core.MetricsRecorder) Option {
	return func(f *Frame) { f.metrics = metrics }
}

func WithErrorReporter(reporter core.ErrorReporter) Option {
	return func(f *Frame) { f.reporter = reporter }
}

// OptionsFromCore maps the file configuration.
func OptionsFromCore(cfg core.ConsumerConfig) []Option {
	opts := []Option{
		WithIframeAttrs(cfg.IframeAttrs),
		WithResizeSettings(ResizeSettings{
			FixedHeight:             cfg.FixedHeight,
			FixedWidth:              cfg.FixedWidth,
			AutoResizeWidth:         cfg.AutoResizeWidth,
			HeightCalculationMethod: cfg.HeightCalculationMethod,
			WidthCalculationMethod:  cfg.WidthCalculationMethod,
			TargetSelectors:         cfg.TargetSelectors,
		}),
	}
	if cfg.Secret != "" {
		opts = append(opts, WithSecret(cfg.Secret))
	}
	if cfg.FocusStyle != "" || cfg.BlurStyle != "" {
		opts = append(opts, WithFocusIndicator(FocusIndicator{FocusStyle: cfg.FocusStyle, BlurStyle: cfg.BlurStyle}))
	}
	return opts
}
