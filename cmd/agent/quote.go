package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/domain/services"
	"github.com/bimakw/route-agent/internal/presentation/handlers"
)

func newQuoteCmd(c *cli) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print the best route without building a trade",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close()

			tokenIn, err := a.tokens.ParseToken(f.tokenIn)
			if err != nil {
				return fmt.Errorf("--token-in: %w", err)
			}
			tokenOut, err := a.tokens.ParseToken(f.tokenOut)
			if err != nil {
				return fmt.Errorf("--token-out: %w", err)
			}
			amountIn, err := entities.ParseAmount(f.amountIn)
			if err != nil {
				return fmt.Errorf("--amount-in: %w", err)
			}

			quote, err := a.agent.Quote(cmd.Context(), services.QuoteRequest{
				TokenIn:  tokenIn,
				TokenOut: tokenOut,
				AmountIn: amountIn,
				MaxHops:  f.maxHops,
			})
			if err != nil {
				return err
			}
			if !quote.Route.Viable() {
				c.log.Warn("no route",
					zap.String("token_in", tokenIn.Hex()),
					zap.String("token_out", tokenOut.Hex()),
				)
			}
			return printJSON(cmd.OutOrStdout(), handlers.NewRouteResponse(cmd.Context(), a.tokens, quote))
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.tokenIn, "token-in", "", "input token address or registered symbol")
	fl.StringVar(&f.tokenOut, "token-out", "", "output token address or registered symbol")
	fl.StringVar(&f.amountIn, "amount-in", "", "input amount in the token's smallest unit")
	fl.IntVar(&f.maxHops, "max-hops", 0, "maximum hops (default from config)")
	_ = cmd.MarkFlagRequired("token-in")
	_ = cmd.MarkFlagRequired("token-out")
	_ = cmd.MarkFlagRequired("amount-in")

	return cmd
}
