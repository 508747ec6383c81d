package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultDebounceMS = 100
	DefaultBridgeKind = "memory"
)

type ProviderConfig struct {
	ACLs            []string `koanf:"acls" mapstructure:"acls"`
	Secret          string   `koanf:"secret" mapstructure:"secret"`
	TargetSelectors string   `koanf:"target_selectors" mapstructure:"target_selectors"`
}

type ConsumerConfig struct {
	Source                  string            `koanf:"source" mapstructure:"source"`
	Secret                  string            `koanf:"secret" mapstructure:"secret"`
	IframeAttrs             map[string]string `koanf:"iframe_attrs" mapstructure:"iframe_attrs"`
	FocusStyle              string            `koanf:"focus_style" mapstructure:"focus_style"`
	BlurStyle               string            `koanf:"blur_style" mapstructure:"blur_style"`
	FixedHeight             string            `koanf:"fixed_height" mapstructure:"fixed_height"`
	FixedWidth              string            `koanf:"fixed_width" mapstructure:"fixed_width"`
	AutoResizeWidth         bool              `koanf:"auto_resize_width" mapstructure:"auto_resize_width"`
	HeightCalculationMethod string            `koanf:"height_calculation_method" mapstructure:"height_calculation_method"`
	WidthCalculationMethod  string            `koanf:"width_calculation_method" mapstructure:"width_calculation_method"`
	TargetSelectors         string            `koanf:"target_selectors" mapstructure:"target_selectors"`
}

type ResizeConfig struct {
	DebounceMS int `koanf:"debounce_ms" mapstructure:"debounce_ms"`
}

// BridgeConfig selects how iframe content windows are opened. Kind names
// an entry of the transport registry; URL is read by the websocket kind,
// which otherwise derives the endpoint from the frame source.
type BridgeConfig struct {
	Kind string `koanf:"kind" mapstructure:"kind"`
	URL  string `koanf:"url" mapstructure:"url"`
}

type Config struct {
	Name     string         `koanf:"name" mapstructure:"name"`
	Provider ProviderConfig `koanf:"provider" mapstructure:"provider"`
	Consumer ConsumerConfig `koanf:"consumer" mapstructure:"consumer"`
	Resize   ResizeConfig   `koanf:"resize" mapstructure:"resize"`
	Bridge   BridgeConfig   `koanf:"bridge" mapstructure:"bridge"`
}

func DefaultConfig() Config {
	return Config{
		Name:   "xfc",
		Resize: ResizeConfig{DebounceMS: DefaultDebounceMS},
		Bridge: BridgeConfig{Kind: DefaultBridgeKind},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("core: name is required")
	}
	for i, entry := range c.Provider.ACLs {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("core: provider.acls[%d] is required", i)
		}
	}
	if c.Resize.DebounceMS < 0 {
		return fmt.Errorf("core: resize.debounce_ms must not be negative")
	}
	if raw := strings.TrimSpace(c.Bridge.URL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || (parsed.Scheme != "ws" && parsed.Scheme != "wss") || parsed.Host == "" {
			return fmt.Errorf("core: bridge.url %q must be a ws or wss url", raw)
		}
	}
	if source := strings.TrimSpace(c.Consumer.Source); source != "" && source != "*" {
		parsed, err := url.Parse(source)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: consumer.source %q is invalid", source)
		}
	}
	return nil
}

func (c ResizeConfig) DebounceInterval() time.Duration {
	if c.DebounceMS <= 0 {
		return DefaultDebounceMS * time.Millisecond
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}
