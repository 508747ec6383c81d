package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-xfc/query"
)

func newMatchCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <origin-or-url>...",
		Short: "Check origins against the provider allow-list",
		Long:  "Evaluates each argument against provider.acls the way a provider filters inbound\nmessages. Exits non-zero when any origin is rejected.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd.Context())
			if err != nil {
				return fmt.Errorf("resolve config: %w", err)
			}

			matcher := query.NewMatchOriginQuery()
			rejected := 0
			for _, candidate := range args {
				msg := query.MatchOriginMessage{ACL: cfg.Provider.ACLs, Origin: candidate}
				if err := msg.Validate(); err != nil {
					return err
				}
				result, err := matcher.Query(cmd.Context(), msg)
				if err != nil {
					return err
				}
				if result.Matched {
					fmt.Fprintf(cmd.OutOrStdout(), "allow  %s  (%s)\n", result.Origin, result.Entry)
					continue
				}
				rejected++
				fmt.Fprintf(cmd.OutOrStdout(), "reject %s\n", result.Origin)
			}
			if rejected > 0 {
				return fmt.Errorf("%d of %d origins rejected", rejected, len(args))
			}
			return nil
		},
	}
	return cmd
}
