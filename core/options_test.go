package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return l.values, nil
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), nil, Config{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "xfc" {
		t.Fatalf("expected default name xfc, got %q", cfg.Name)
	}
	if cfg.Resize.DebounceMS != DefaultDebounceMS {
		t.Fatalf("expected default debounce %d, got %d", DefaultDebounceMS, cfg.Resize.DebounceMS)
	}
	if len(cfg.Provider.ACLs) != 0 {
		t.Fatalf("expected empty acls by default, got %#v", cfg.Provider.ACLs)
	}
}

func TestLoadConfig_LayeringPrecedence(t *testing.T) {
	loader := mapRawLoader{values: map[string]any{
		"name": "from-config",
		"provider": map[string]any{
			"acls":             []any{"http://localhost:8080", "*.domain.com"},
			"target_selectors": "#main",
		},
		"resize": map[string]any{"debounce_ms": 250},
	}}

	cfg, err := LoadConfig(context.Background(), loader, Config{Name: "runtime"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "runtime" {
		t.Fatalf("expected runtime layer to win, got %q", cfg.Name)
	}
	if len(cfg.Provider.ACLs) != 2 || cfg.Provider.ACLs[1] != "*.domain.com" {
		t.Fatalf("expected acls from config layer, got %#v", cfg.Provider.ACLs)
	}
	if cfg.Provider.TargetSelectors != "#main" {
		t.Fatalf("expected target selectors from config layer, got %q", cfg.Provider.TargetSelectors)
	}
	if cfg.Resize.DebounceMS != 250 {
		t.Fatalf("expected debounce 250, got %d", cfg.Resize.DebounceMS)
	}
}

func TestYAMLFileLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xfc.yaml")
	doc := []byte("name: embed\nprovider:\n  acls:\n    - https://host.example.com\nconsumer:\n  source: https://app.example.com/index.html\n  iframe_attrs:\n    allow: camera\n")
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(context.Background(), YAMLFileLoader{Path: path, Required: true}, Config{})
	if err != nil {
		t.Fatalf("load yaml config: %v", err)
	}
	if cfg.Name != "embed" {
		t.Fatalf("expected name embed, got %q", cfg.Name)
	}
	if len(cfg.Provider.ACLs) != 1 || cfg.Provider.ACLs[0] != "https://host.example.com" {
		t.Fatalf("unexpected acls %#v", cfg.Provider.ACLs)
	}
	if cfg.Consumer.IframeAttrs["allow"] != "camera" {
		t.Fatalf("expected iframe attrs from yaml, got %#v", cfg.Consumer.IframeAttrs)
	}
}

func TestLoadConfig_BridgeSection(t *testing.T) {
	loader := mapRawLoader{values: map[string]any{
		"bridge": map[string]any{"kind": "websocket", "url": "ws://relay.example.com/xfc"},
	}}
	cfg, err := LoadConfig(context.Background(), loader, Config{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Bridge.Kind != "websocket" || cfg.Bridge.URL != "ws://relay.example.com/xfc" {
		t.Fatalf("unexpected bridge config %#v", cfg.Bridge)
	}

	defaults, err := LoadConfig(context.Background(), nil, Config{})
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if defaults.Bridge.Kind != DefaultBridgeKind {
		t.Fatalf("expected default bridge kind, got %q", defaults.Bridge.Kind)
	}
}

func TestYAMLFileLoader_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	raw, err := YAMLFileLoader{Path: missing}.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("expected optional missing file to load empty, got %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("expected empty raw config, got %#v", raw)
	}

	if _, err := (YAMLFileLoader{Path: missing, Required: true}).LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected required missing file to fail")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]Config{
		"empty name":         {Name: " "},
		"blank acl":          {Name: "xfc", Provider: ProviderConfig{ACLs: []string{"http://a", " "}}},
		"negative debounce":  {Name: "xfc", Resize: ResizeConfig{DebounceMS: -1}},
		"relative source":    {Name: "xfc", Consumer: ConsumerConfig{Source: "/app"}},
		"websocket http url": {Name: "xfc", Bridge: BridgeConfig{Kind: "websocket", URL: "http://relay.example.com"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	ok := Config{Name: "xfc", Consumer: ConsumerConfig{Source: "*"}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected wildcard source to validate, got %v", err)
	}
}
