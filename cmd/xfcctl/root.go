package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	xfc "github.com/goliatone/go-xfc"
)

type rootOptions struct {
	configPath string
	verbose    bool
	name       string
	acls       []string
	secret     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "xfcctl",
		Short:        "Inspect cross-frame embedding configuration",
		Long:         "Resolves xfc configuration files, evaluates origins against provider allow-lists\nand serves provider frames to remote consumers over a websocket bridge.",
		SilenceUsage: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")
	flags.StringVar(&opts.name, "name", "", "Override the configured name")
	flags.StringSliceVar(&opts.acls, "acl", nil, "Override provider.acls (repeatable)")
	flags.StringVar(&opts.secret, "secret", "", "Override provider.secret")

	cmd.AddCommand(
		newConfigCmd(opts),
		newMatchCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// load resolves defaults, the config file and flag overrides.
func (o *rootOptions) load(ctx context.Context) (xfc.Config, error) {
	runtime := xfc.Config{
		Name: strings.TrimSpace(o.name),
		Provider: xfc.ProviderConfig{
			ACLs:   o.acls,
			Secret: o.secret,
		},
	}
	path := strings.TrimSpace(o.configPath)
	return xfc.LoadConfig(ctx, xfc.YAMLFileLoader{Path: path, Required: path != ""}, runtime)
}
