package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/domain/services"
	"github.com/bimakw/route-agent/internal/presentation/handlers"
)

type runFlags struct {
	tokenIn     string
	tokenOut    string
	amountIn    string
	maxHops     int
	slippageBps int
	fee         string
	recipient   string
}

func newRunCmd(c *cli) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build an unsigned swap payload for the best route",
		Long: `Run reads the gas price, queries the router for the best path, bounds the
output by the slippage tolerance and prints the encoded swapNoSplit call.
Nothing is signed or broadcast. A missing route exits 0; a failed run exits 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := f.request(cmd, a.tokens)
			if err != nil {
				return err
			}

			res, runErr := a.agent.Run(cmd.Context(), req)
			if err := printJSON(cmd.OutOrStdout(), handlers.NewTradeResponse(res)); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("run %s failed: %w", res.RunID, runErr)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.tokenIn, "token-in", "", "input token address or registered symbol")
	fl.StringVar(&f.tokenOut, "token-out", "", "output token address or registered symbol")
	fl.StringVar(&f.amountIn, "amount-in", "", "input amount in the token's smallest unit")
	fl.IntVar(&f.maxHops, "max-hops", 0, "maximum hops (default from config)")
	fl.IntVar(&f.slippageBps, "slippage-bps", 0, "slippage tolerance in basis points (default from config)")
	fl.StringVar(&f.fee, "fee", "", "router fee argument (default from config)")
	fl.StringVar(&f.recipient, "recipient", "", "address receiving the output (default wallet)")
	_ = cmd.MarkFlagRequired("token-in")
	_ = cmd.MarkFlagRequired("token-out")
	_ = cmd.MarkFlagRequired("amount-in")

	return cmd
}

type tokenParser interface {
	ParseToken(ref string) (common.Address, error)
}

func (f *runFlags) request(cmd *cobra.Command, tokens tokenParser) (services.TradeRequest, error) {
	var req services.TradeRequest
	var err error

	if req.TokenIn, err = tokens.ParseToken(f.tokenIn); err != nil {
		return req, fmt.Errorf("--token-in: %w", err)
	}
	if req.TokenOut, err = tokens.ParseToken(f.tokenOut); err != nil {
		return req, fmt.Errorf("--token-out: %w", err)
	}
	if req.AmountIn, err = entities.ParseAmount(f.amountIn); err != nil {
		return req, fmt.Errorf("--amount-in: %w", err)
	}

	req.MaxHops = f.maxHops
	if cmd.Flags().Changed("slippage-bps") {
		bps := f.slippageBps
		req.SlippageBps = &bps
	}
	if f.fee != "" {
		if req.Fee, err = entities.ParseAmount(f.fee); err != nil {
			return req, fmt.Errorf("--fee: %w", err)
		}
	}
	if f.recipient != "" {
		if !common.IsHexAddress(f.recipient) {
			return req, fmt.Errorf("--recipient: %q is not an address", f.recipient)
		}
		addr := common.HexToAddress(f.recipient)
		req.Recipient = &addr
	}
	return req, nil
}
