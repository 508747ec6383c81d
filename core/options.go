package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
	"gopkg.in/yaml.v3"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// StaticConfigLoader serves a fixed raw map.
type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// YAMLFileLoader reads a YAML document into a raw map. A missing file is
// treated as empty unless Required is set.
type YAMLFileLoader struct {
	Path     string
	Required bool
}

func (l YAMLFileLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !l.Required {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("core: read config %q: %w", path, err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("core: parse config %q: %w", path, err)
	}
	return raw, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// LoadConfig resolves defaults, loader values and runtime overrides, in
// that order of precedence.
func LoadConfig(ctx context.Context, loader RawConfigLoader, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	loaded, err := NewCfgxConfigProvider(loader).Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Name) != "" {
		layer["name"] = cfg.Name
	}

	provider := map[string]any{}
	if includeZero || len(cfg.Provider.ACLs) > 0 {
		provider["acls"] = append([]string(nil), cfg.Provider.ACLs...)
	}
	putString(provider, "secret", cfg.Provider.Secret, includeZero)
	putString(provider, "target_selectors", cfg.Provider.TargetSelectors, includeZero)
	if len(provider) > 0 {
		layer["provider"] = provider
	}

	consumer := map[string]any{}
	putString(consumer, "source", cfg.Consumer.Source, includeZero)
	putString(consumer, "secret", cfg.Consumer.Secret, includeZero)
	putString(consumer, "focus_style", cfg.Consumer.FocusStyle, includeZero)
	putString(consumer, "blur_style", cfg.Consumer.BlurStyle, includeZero)
	putString(consumer, "fixed_height", cfg.Consumer.FixedHeight, includeZero)
	putString(consumer, "fixed_width", cfg.Consumer.FixedWidth, includeZero)
	putString(consumer, "height_calculation_method", cfg.Consumer.HeightCalculationMethod, includeZero)
	putString(consumer, "width_calculation_method", cfg.Consumer.WidthCalculationMethod, includeZero)
	putString(consumer, "target_selectors", cfg.Consumer.TargetSelectors, includeZero)
	if includeZero || cfg.Consumer.AutoResizeWidth {
		consumer["auto_resize_width"] = cfg.Consumer.AutoResizeWidth
	}
	if includeZero || len(cfg.Consumer.IframeAttrs) > 0 {
		attrs := make(map[string]any, len(cfg.Consumer.IframeAttrs))
		for key, value := range cfg.Consumer.IframeAttrs {
			attrs[key] = value
		}
		consumer["iframe_attrs"] = attrs
	}
	if len(consumer) > 0 {
		layer["consumer"] = consumer
	}

	bridge := map[string]any{}
	putString(bridge, "kind", cfg.Bridge.Kind, includeZero)
	putString(bridge, "url", cfg.Bridge.URL, includeZero)
	if len(bridge) > 0 {
		layer["bridge"] = bridge
	}

	if includeZero || cfg.Resize.DebounceMS != 0 {
		layer["resize"] = map[string]any{
			"debounce_ms": cfg.Resize.DebounceMS,
		}
	}
	return layer
}

func putString(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = value
	}
}
