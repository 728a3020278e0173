package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

// backend is the subset of ethclient.Client the agent needs.
type backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Options tune the client's outbound RPC rate.
type Options struct {
	RequestsPerSecond float64
	Burst             int
	// MaxConcurrentCalls bounds Multicall fan-out.
	MaxConcurrentCalls int
}

func DefaultOptions() Options {
	return Options{
		RequestsPerSecond:  20,
		Burst:              10,
		MaxConcurrentCalls: 10,
	}
}

// Client wraps the go-ethereum client. Every failure it returns is an
// *entities.TransportError; it never retries.
type Client struct {
	client  backend
	rpcURL  string
	chainID *big.Int
	limiter *rate.Limiter
	opts    Options
	mu      sync.RWMutex
}

// NewClient dials rpcURL and reads the chain id.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, entities.NewTransportError("dial", err)
	}

	c, err := newClient(ctx, client, rpcURL, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

func newClient(ctx context.Context, b backend, rpcURL string, opts Options) (*Client, error) {
	if opts.MaxConcurrentCalls <= 0 {
		opts.MaxConcurrentCalls = DefaultOptions().MaxConcurrentCalls
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		client:  b,
		rpcURL:  rpcURL,
		limiter: rate.NewLimiter(limit, burst),
		opts:    opts,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, entities.NewTransportError("eth_chainId", err)
	}
	chainID, err := b.ChainID(ctx)
	if err != nil {
		return nil, entities.NewTransportError("eth_chainId", err)
	}
	c.chainID = chainID
	return c, nil
}

// Close closes the underlying client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.Close()
}

// ChainID returns the chain ID read at dial time.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

func (c *Client) RPCURL() string {
	return c.rpcURL
}

// CheckChain fails when the node serves a different chain than expected.
func (c *Client) CheckChain(expected int64) error {
	if expected != 0 && c.chainID.Cmp(big.NewInt(expected)) != 0 {
		return fmt.Errorf("rpc %s serves chain %s, configured chain is %d", c.rpcURL, c.chainID, expected)
	}
	return nil
}

// CurrentGasPrice returns the node's suggested gas price.
func (c *Client) CurrentGasPrice(ctx context.Context) (*big.Int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, entities.NewTransportError("eth_gasPrice", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	price, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, entities.NewTransportError("eth_gasPrice", err)
	}
	if price == nil {
		return nil, entities.NewTransportError("eth_gasPrice", fmt.Errorf("empty response"))
	}
	return price, nil
}

// CallContract executes a read-only call against the latest block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, entities.NewTransportError("eth_call", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	result, err := c.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, entities.NewTransportError("eth_call", err)
	}
	return result, nil
}

// Multicall performs the calls concurrently, bounded by MaxConcurrentCalls.
// Results keep the order of calls; the first failure cancels the rest.
func (c *Client) Multicall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error) {
	results := make([][]byte, len(calls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrentCalls)

	for i, call := range calls {
		g.Go(func() error {
			result, err := c.CallContract(ctx, call)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
