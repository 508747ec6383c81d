package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	xfc "github.com/goliatone/go-xfc"
	"github.com/goliatone/go-xfc/core"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long:  "Merges defaults, the configuration file and flag overrides, validates the result\nand prints it. Secrets are redacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load(cmd.Context())
			if err != nil {
				return fmt.Errorf("resolve config: %w", err)
			}
			return printConfig(cmd, core.RedactFields(configDocument(cfg)), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format (yaml|json)")
	return cmd
}

func printConfig(cmd *cobra.Command, doc map[string]any, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	case "yaml", "":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// configDocument mirrors the file layout of xfc.Config.
func configDocument(cfg xfc.Config) map[string]any {
	return map[string]any{
		"name": cfg.Name,
		"provider": map[string]any{
			"acls":             nonNil(cfg.Provider.ACLs),
			"secret":           cfg.Provider.Secret,
			"target_selectors": cfg.Provider.TargetSelectors,
		},
		"consumer": map[string]any{
			"source":                    cfg.Consumer.Source,
			"secret":                    cfg.Consumer.Secret,
			"iframe_attrs":              cfg.Consumer.IframeAttrs,
			"focus_style":               cfg.Consumer.FocusStyle,
			"blur_style":                cfg.Consumer.BlurStyle,
			"fixed_height":              cfg.Consumer.FixedHeight,
			"fixed_width":               cfg.Consumer.FixedWidth,
			"auto_resize_width":         cfg.Consumer.AutoResizeWidth,
			"height_calculation_method": cfg.Consumer.HeightCalculationMethod,
			"width_calculation_method":  cfg.Consumer.WidthCalculationMethod,
			"target_selectors":          cfg.Consumer.TargetSelectors,
		},
		"resize": map[string]any{
			"debounce_ms": cfg.Resize.DebounceMS,
		},
		"bridge": map[string]any{
			"kind": cfg.Bridge.Kind,
			"url":  cfg.Bridge.URL,
		},
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
