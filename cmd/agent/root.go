package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimakw/route-agent/internal/config"
	"github.com/bimakw/route-agent/internal/logger"
)

// globalFlags override the loaded config when set on the command line.
type globalFlags struct {
	configPath   string
	debug        bool
	chainID      int64
	rpcURL       string
	otelEndpoint string
}

// cli carries state shared by the subcommands.
type cli struct {
	flags globalFlags
	cfg   *config.Config
	log   *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "route-agent",
		Short: "Route evaluation and trade construction against an on-chain swap router",
		Long: `route-agent reads the network gas price, asks the router contract for the
best multi-hop path between two tokens, applies a slippage bound and builds
the unsigned swapNoSplit calldata. It never signs or broadcasts.`,
		Version:      version,
		SilenceUsage: true,
	}
	c.bind(root)

	root.AddCommand(
		newRunCmd(c),
		newQuoteCmd(c),
		newServeCmd(c),
		newTokensCmd(c),
	)
	return root
}

// bind registers the global flags on root and loads the config before any
// subcommand runs.
func (c *cli) bind(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "config file (YAML)")
	pf.BoolVar(&c.flags.debug, "debug", false, "enable debug logging")
	pf.Int64Var(&c.flags.chainID, "chain-id", 0, "chain id to select from the chains directory")
	pf.StringVar(&c.flags.rpcURL, "rpc-url", "", "JSON-RPC endpoint")
	pf.StringVar(&c.flags.otelEndpoint, "otel-endpoint", "", "OTLP/HTTP trace collector (host:port)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.load(cmd)
	}
}

// load reads the config and applies the global flags that were set.
func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load(c.flags.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = c.flags.debug
	}
	if flags.Changed("chain-id") {
		cfg.ChainID = c.flags.chainID
	}
	if flags.Changed("rpc-url") {
		cfg.RPCURL = c.flags.rpcURL
	}
	if flags.Changed("otel-endpoint") {
		cfg.OTelEndpoint = c.flags.otelEndpoint
	}

	c.cfg = cfg
	c.log = logger.Init(cfg.Debug)
	return nil
}
