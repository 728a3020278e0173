package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func newTokensCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <address|symbol>...",
		Short: "Print token metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close()

			addrs := make([]common.Address, len(args))
			for i, ref := range args {
				if addrs[i], err = a.tokens.ParseToken(ref); err != nil {
					return fmt.Errorf("argument %d: %w", i+1, err)
				}
			}

			tokens, err := a.tokens.ResolveMany(cmd.Context(), addrs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tokens)
		},
	}
}
