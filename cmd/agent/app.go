package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/bimakw/route-agent/internal/config"
	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/domain/services"
	"github.com/bimakw/route-agent/internal/infrastructure/cache"
	"github.com/bimakw/route-agent/internal/infrastructure/erc20"
	"github.com/bimakw/route-agent/internal/infrastructure/ethereum"
	"github.com/bimakw/route-agent/internal/infrastructure/identity"
	"github.com/bimakw/route-agent/internal/infrastructure/router"
	"github.com/bimakw/route-agent/internal/observability"
)

const metricsNamespace = "route_agent"

// app is the wired agent for one chain.
type app struct {
	cfg      *config.Config
	chain    *config.Chain
	log      *zap.Logger
	client   *ethereum.Client
	router   common.Address
	agent    *services.Agent
	tokens   *services.TokenService
	registry *prometheus.Registry
	closers  []func()
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.ChainID > 0 {
		if err = a.lookupChain(cfg.ChainID, true); err != nil {
			return nil, err
		}
		if cfg.RPCURL == "" && a.chain != nil {
			cfg.RPCURL = a.chain.RPCURL
		}
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	opts := ethereum.DefaultOptions()
	opts.RequestsPerSecond = cfg.RPCRateLimit.RequestsPerSecond
	opts.Burst = cfg.RPCRateLimit.Burst
	if a.client, err = ethereum.NewClient(ctx, cfg.RPCURL, opts); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.RPCURL, err)
	}
	a.closers = append(a.closers, a.client.Close)

	if cfg.ChainID > 0 {
		if err = a.client.CheckChain(cfg.ChainID); err != nil {
			return nil, err
		}
	} else {
		cfg.ChainID = a.client.ChainID().Int64()
		if err = a.lookupChain(cfg.ChainID, false); err != nil {
			return nil, err
		}
	}
	log.Info("connected", zap.Int64("chain_id", cfg.ChainID))

	if a.router, err = a.routerAddress(); err != nil {
		return nil, err
	}
	schema, err := router.SchemaByVersion(a.routerSchema())
	if err != nil {
		return nil, err
	}

	tokens := entities.NewTokenRegistry()
	if a.chain != nil {
		if tokens, err = a.chain.TokenRegistry(); err != nil {
			return nil, err
		}
	}
	a.tokens = services.NewTokenService(cfg.ChainID, tokens, erc20.NewReader(a.client), a.tokenCache(ctx), log)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTelEndpoint, version)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracer)

	a.agent = services.NewAgent(
		a.client,
		router.NewFinder(a.client, a.router, schema, log),
		router.NewEncoder(schema),
		cfg.AgentConfig(a.router),
		log,
	).
		WithMetrics(observability.NewAgentMetrics(a.registry, metricsNamespace)).
		WithTracer(observability.Tracer())

	id, err := a.identity()
	if err != nil {
		return nil, err
	}
	if id != nil {
		a.agent.WithIdentity(id)
		log.Info("default recipient", zap.String("address", id.Address().Hex()))
	}

	log.Info("agent ready",
		zap.String("router", a.router.Hex()),
		zap.String("schema", schema.Version()),
		zap.Int("known_tokens", tokens.Count()),
	)
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) routerAddress() (common.Address, error) {
	if a.cfg.Router != "" {
		return common.HexToAddress(a.cfg.Router), nil
	}
	if a.chain != nil {
		return a.chain.RouterAddress(), nil
	}
	return common.Address{}, fmt.Errorf("no router configured for chain %d", a.cfg.ChainID)
}

func (a *app) routerSchema() string {
	if a.cfg.RouterSchema != "" {
		return a.cfg.RouterSchema
	}
	if a.chain != nil {
		return a.chain.RouterSchema
	}
	return ""
}

// tokenCache prefers Redis and falls back to an in-process LRU.
func (a *app) tokenCache(ctx context.Context) cache.Cache {
	if a.cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err == nil {
			a.closers = append(a.closers, func() { _ = redisCache.Close() })
			a.log.Info("connected to redis", zap.String("addr", a.cfg.Redis.Addr))
			return redisCache
		}
		a.log.Warn("failed to connect to redis, using in-memory cache", zap.Error(err))
	}

	lruCache, err := cache.NewLRUCache(a.cfg.TokenCacheSize)
	if err != nil {
		a.log.Warn("token cache disabled", zap.Error(err))
		return nil
	}
	return lruCache
}

// identity picks the default recipient: the key from the environment, then
// the configured wallet address. The key is dropped once the address is known.
func (a *app) identity() (*identity.Provider, error) {
	if key := a.cfg.Wallet.PrivateKey; key != "" {
		a.cfg.Wallet.PrivateKey = ""
		p, err := identity.FromHexKey(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.EnvPrivateKey, err)
		}
		return p, nil
	}
	if a.cfg.Wallet.Address != "" {
		return identity.FromHex(a.cfg.Wallet.Address)
	}
	return nil, nil
}

var errNoChainFile = errors.New("no chain file")

// lookupChain loads the chain file for chainID. A missing file is an error
// when the chain id was requested explicitly and no router override is set;
// otherwise the agent continues on the configured router.
func (a *app) lookupChain(chainID int64, explicit bool) error {
	chain, err := chainFor(a.cfg.ChainsDir, chainID)
	switch {
	case err == nil:
		a.chain = chain
		return nil
	case errors.Is(err, errNoChainFile) && (!explicit || a.cfg.Router != ""):
		a.log.Warn("no chain file, using configured router",
			zap.Int64("chain_id", chainID),
			zap.Error(err),
		)
		return nil
	default:
		return err
	}
}

// chainFor returns the chain file for chainID from dir. errNoChainFile is
// returned when dir does not exist or holds no such chain.
func chainFor(dir string, chainID int64) (*config.Chain, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w for chain %d: chains_dir is empty", errNoChainFile, chainID)
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for chain %d: %s does not exist", errNoChainFile, chainID, dir)
	}
	chains, err := config.LoadChainRegistry(dir)
	if err != nil {
		return nil, err
	}
	chain, err := chains.ByID(chainID)
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %v", errNoChainFile, dir, err)
	}
	return chain, nil
}
