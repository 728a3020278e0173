package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/observability"
)

// MockChainReader is a testify mock of ChainReader.
type MockChainReader struct {
	mock.Mock
}

func (m *MockChainReader) CurrentGasPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	price, _ := args.Get(0).(*big.Int)
	return price, args.Error(1)
}

// FakeRouteFinder returns a fixed route or error and records its calls.
type FakeRouteFinder struct {
	mu       sync.Mutex
	route    *entities.Route
	err      error
	calls    int
	lastHops int
	lastGas  *big.Int
}

func (f *FakeRouteFinder) FindBestPath(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address, maxHops int, gasPrice *big.Int) (*entities.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastHops = maxHops
	f.lastGas = gasPrice
	if f.err != nil {
		return nil, f.err
	}
	return f.route.Clone(), nil
}

func (f *FakeRouteFinder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeEncoder tags its output with the minimum amount so tests can tell
// payloads apart.
type FakeEncoder struct {
	mu            sync.Mutex
	err           error
	calls         int
	lastRecipient common.Address
	lastFee       *big.Int
}

func (f *FakeEncoder) Encode(trade *entities.Trade, recipient common.Address, fee *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastRecipient = recipient
	f.lastFee = fee
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte{0xde, 0xad}, trade.AmountOut.Bytes()...), nil
}

func (f *FakeEncoder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type staticIdentity common.Address

func (s staticIdentity) Address() common.Address { return common.Address(s) }

func testConfig() AgentConfig {
	cfg := DefaultAgentConfig(routerAddr)
	cfg.StageTimeout = time.Second
	cfg.RetryBackoff = 0
	return cfg
}

func baseRequest() TradeRequest {
	recipient := walletAddr
	return TradeRequest{
		TokenIn:   wavax,
		TokenOut:  usdc,
		AmountIn:  big.NewInt(1e18),
		Recipient: &recipient,
	}
}

func TestAgentRunReady(t *testing.T) {
	reader := new(MockChainReader)
	reader.On("CurrentGasPrice", mock.Anything).Return(big.NewInt(25_000_000_000), nil).Once()
	finder := &FakeRouteFinder{route: twoHopRoute()}
	encoder := &FakeEncoder{}

	agent := NewAgent(reader, finder, encoder, testConfig(), nil)
	res, err := agent.Run(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, StateReady, res.State)
	assert.Equal(t, []State{
		StateStart, StateFeesRead, StateRouteQueried, StateRouteFound,
		StateGuarded, StateComposed, StateEncoded, StateReady,
	}, res.Trace)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 0, res.MinimumOutput.Cmp(big.NewInt(2985_000000)))
	assert.Equal(t, 0, res.Trade.AmountOut.Cmp(big.NewInt(2985_000000)))
	assert.Equal(t, 0, res.Trade.AmountIn.Cmp(big.NewInt(1e18)))
	assert.Equal(t, routerAddr, res.Payload.To)
	assert.Equal(t, []byte{0xde, 0xad}, []byte(res.Payload.Data[:2]))

	assert.Equal(t, DefaultMaxHops, finder.lastHops)
	assert.Equal(t, int64(25_000_000_000), finder.lastGas.Int64())
	assert.Equal(t, walletAddr, encoder.lastRecipient)
	assert.Equal(t, 0, encoder.lastFee.Sign())
	reader.AssertExpectations(t)
}

func TestAgentRunNoRoute(t *testing.T) {
	tests := []struct {
		name  string
		route *entities.Route
	}{
		{"empty adapters", &entities.Route{
			Amounts: []*big.Int{big.NewInt(1e18)},
			Path:    []common.Address{wavax},
		}},
		{"zero output", &entities.Route{
			Amounts:  []*big.Int{big.NewInt(1e18), big.NewInt(0)},
			Adapters: []common.Address{adapter1},
			Path:     []common.Address{wavax, usdc},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockChainReader)
			reader.On("CurrentGasPrice", mock.Anything).Return(big.NewInt(1), nil)
			finder := &FakeRouteFinder{route: tt.route}
			encoder := &FakeEncoder{}

			res, err := NewAgent(reader, finder, encoder, testConfig(), nil).Run(context.Background(), baseRequest())
			require.NoError(t, err)

			assert.Equal(t, StateNoRoute, res.State)
			assert.Equal(t, []State{StateStart, StateFeesRead, StateRouteQueried, StateNoRoute}, res.Trace)
			assert.Nil(t, res.Trade)
			assert.Nil(t, res.Payload)
			assert.Nil(t, res.Err)
			assert.Equal(t, 0, encoder.Calls())
			assert.Equal(t, 1, finder.Calls())
		})
	}
}

func TestAgentRunGasPriceTimeout(t *testing.T) {
	reader := new(MockChainReader)
	reader.On("CurrentGasPrice", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)
	finder := &FakeRouteFinder{route: twoHopRoute()}
	encoder := &FakeEncoder{}

	cfg := testConfig()
	cfg.StageTimeout = 20 * time.Millisecond
	cfg.MaxAttempts = 1

	res, err := NewAgent(reader, finder, encoder, cfg, nil).Run(context.Background(), baseRequest())
	require.Error(t, err)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, []State{StateStart, StateFailed}, res.Trace)
	assert.True(t, entities.IsTimeout(err))
	assert.True(t, entities.IsRetryable(err))
	assert.Equal(t, 0, finder.Calls())
	assert.Equal(t, 0, encoder.Calls())
}

func TestAgentRunRetriesTransportErrors(t *testing.T) {
	reader := new(MockChainReader)
	reader.On("CurrentGasPrice", mock.Anything).Return(nil, errors.New("connection refused")).Once()
	reader.On("CurrentGasPrice", mock.Anything).Return(big.NewInt(30), nil).Once()
	finder := &FakeRouteFinder{route: twoHopRoute()}

	reg := prometheus.NewRegistry()
	metrics := observability.NewAgentMetrics(reg, "test")

	agent := NewAgent(reader, finder, &FakeEncoder{}, testConfig(), nil).WithMetrics(metrics)
	res, err := agent.Run(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, StateReady, res.State)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, StateStart, res.Trace[0])
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Attempts))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Retries))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues(string(StateReady))))
	reader.AssertExpectations(t)
}

func TestAgentRunStopsAfterMaxAttempts(t *testing.T) {
	reader := new(MockChainReader)
	reader.On("CurrentGasPrice", mock.Anything).Return(big.NewInt(30), nil)
	finder := &FakeRouteFinder{err: entities.NewTransportError("eth_call", errors.New("502 bad gateway"))}

	res, err := NewAgent(reader, finder, &FakeEncoder{}, testConfig(), nil).Run(context.Background(), baseRequest())
	require.Error(t, err)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, DefaultMaxAttempts, res.Attempts)
	assert.Equal(t, DefaultMaxAttempts, finder.Calls())
	assert.Equal(t, []State{StateStart, StateFeesRead, StateFailed}, res.Trace)
}

func TestAgentRunDoesNotRetryFatalErrors(t *testing.T) {
	tests := []struct {
		name      string
		finderErr error
		encodeErr error
		check     func(t *testing.T, err error)
	}{
		{
			name:      "decoding error",
			finderErr: &entities.DecodingError{Field: "adapters", Reason: "length mismatch"},
			check: func(t *testing.T, err error) {
				var de *entities.DecodingError
				assert.ErrorAs(t, err, &de)
			},
		},
		{
			name:      "encoding error",
			encodeErr: &entities.EncodingError{Field: "path", Reason: "too short"},
			check: func(t *testing.T, err error) {
				var ee *entities.EncodingError
				assert.ErrorAs(t, err, &ee)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockChainReader)
			reader.On("CurrentGasPrice", mock.Anything).Return(big.NewInt(30), nil)
			finder := &FakeRouteFinder{route: twoHopRoute(), err: tt.finderErr}
			encoder := &FakeEncoder{err: tt.encodeErr}

			res, err := NewAgent(reader, finder, encoder, testConfig(), nil).Run(context.Background(), baseRequest())
			require.Error(t, err)
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, 1, res.Attempts)
			assert.False(t, entities.IsRetryable(err))
			assert.Equal(t, err.Error(), res.Error)
			tt.check(t, err)
		})
	}
}

func TestAgentRunMalformedRouteFails(t *testing.T) {
	tests := []struct {
		name  string
		route *entities.Route
	}{
		{"adapters without amounts", &entities.Route{
			Adapters: []common.Address{adapter1},
			Path:     []common.Address{wavax, usdc},
		}},
		{"path too short", &entities.Route{
			Amounts:  []*big.Int{big.NewInt(1e18), big.NewInt(5)},
			Adapters: []common.Address{adapter1, adapter2},
			Path:     []common.Address{wavax, usdc},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockChainReader)
			reader.On("CurrentGasPrice", mock.Anything).Return(big.NewInt(1), nil)
			finder := &FakeRouteFinder{route: tt.route}
			encoder := &FakeEncoder{}

			res, err := NewAgent(reader, finder, encoder, testConfig(), nil).Run(context.Background(), baseRequest())
			require.Error(t, err)

			var de *entities.DecodingError
			assert.ErrorAs(t, err, &de)
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, []State{StateStart, StateFeesRead, StateFailed}, res.Trace)
			assert.Equal(t, 1, res.Attempts)
			assert.Equal(t, 0, encoder.Calls())
		})
	}
}

func TestAgentRunRejectsBadRequests(t *testing.T) {
	badSlippage := 10001
	tests := []struct {
		name   string
		mutate func(r *TradeRequest)
		target error
	}{
		{"slippage out of range", func(r *TradeRequest) { r.SlippageBps = &badSlippage }, entities.ErrInvalidTolerance},
		{"zero amount", func(r *TradeRequest) { r.AmountIn = big.NewInt(0) }, entities.ErrInvalidAmount},
		{"nil amount", func(r *TradeRequest) { r.AmountIn = nil }, entities.ErrInvalidAmount},
		{"same token", func(r *TradeRequest) { r.TokenOut = r.TokenIn }, entities.ErrSameToken},
		{"too many hops", func(r *TradeRequest) { r.MaxHops = 256 }, entities.ErrInvalidMaxHops},
		{"missing recipient", func(r *TradeRequest) { r.Recipient = nil }, entities.ErrMissingRecipient},
		{"negative fee", func(r *TradeRequest) { r.Fee = big.NewInt(-1) }, entities.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockChainReader)
			finder := &FakeRouteFinder{route: twoHopRoute()}

			req := baseRequest()
			tt.mutate(&req)

			res, err := NewAgent(reader, finder, &FakeEncoder{}, testConfig(), nil).Run(context.Background(), req)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, IsArgumentError(err))
			assert.Equal(t, StateFailed, res.State)
			reader.AssertNotCalled(t, "CurrentGasPrice", mock.Anything)
			assert.Equal(t, 0, finder.Calls())
		})
	}
}

func TestAgentRunUsesRequestOverrides(t *testing.T) {
	reader := new(MockChainReader)
	reader.On("CurrentGasPrice", mock.Anything).Return(big.NewInt(30), nil)
	finder := &FakeRouteFinder{route: twoHopRoute()}
	encoder := &FakeEncoder{}

	slippage := 100
	req := baseRequest()
	req.Recipient = nil
	req.MaxHops = 2
	req.SlippageBps = &slippage
	req.Fee = big.NewInt(7)

	agent := NewAgent(reader, finder, encoder, testConfig(), nil).WithIdentity(staticIdentity(walletAddr))
	res, err := agent.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, finder.lastHops)
	assert.Equal(t, 100, res.SlippageBps)
	assert.Equal(t, 0, res.MinimumOutput.Cmp(big.NewInt(2970_000000)))
	assert.Equal(t, walletAddr, res.Recipient)
	assert.Equal(t, walletAddr, encoder.lastRecipient)
	assert.Equal(t, int64(7), encoder.lastFee.Int64())
}

func TestAgentRunCancelledContextStopsRetries(t *testing.T) {
	reader := new(MockChainReader)
	reader.On("CurrentGasPrice", mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	cfg := testConfig()
	cfg.RetryBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := NewAgent(reader, &FakeRouteFinder{}, &FakeEncoder{}, cfg, nil).Run(ctx, baseRequest())
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 1, res.Attempts)
}

func TestAgentConcurrentRuns(t *testing.T) {
	reader := new(MockChainReader)
	reader.On("CurrentGasPrice", mock.Anything).Return(big.NewInt(30), nil)
	finder := &FakeRouteFinder{route: twoHopRoute()}
	encoder := &FakeEncoder{}
	agent := NewAgent(reader, finder, encoder, testConfig(), nil)

	const runs = 8
	results := make([]*Result, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = agent.Run(context.Background(), baseRequest())
		}(i)
	}
	wg.Wait()

	ids := make(map[string]bool)
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, StateReady, res.State)
		ids[res.RunID] = true
	}
	assert.Len(t, ids, runs)
	assert.Equal(t, runs, encoder.Calls())
}

func TestAgentQuote(t *testing.T) {
	reader := new(MockChainReader)
	reader.On("CurrentGasPrice", mock.Anything).Return(big.NewInt(30), nil)
	finder := &FakeRouteFinder{route: twoHopRoute()}
	encoder := &FakeEncoder{}

	quote, err := NewAgent(reader, finder, encoder, testConfig(), nil).Quote(context.Background(), QuoteRequest{
		TokenIn:  wavax,
		TokenOut: usdc,
		AmountIn: big.NewInt(1e18),
		MaxHops:  3,
	})
	require.NoError(t, err)

	assert.True(t, quote.Route.Viable())
	assert.Equal(t, uint8(3), quote.MaxHops)
	assert.Equal(t, int64(30), quote.GasPrice.Int64())
	assert.Equal(t, 0, encoder.Calls())
}

func TestAgentQuoteTransportFailure(t *testing.T) {
	reader := new(MockChainReader)
	reader.On("CurrentGasPrice", mock.Anything).Return(nil, errors.New("EOF"))

	cfg := testConfig()
	cfg.MaxAttempts = 2

	_, err := NewAgent(reader, &FakeRouteFinder{}, &FakeEncoder{}, cfg, nil).Quote(context.Background(), QuoteRequest{
		TokenIn:  wavax,
		TokenOut: usdc,
		AmountIn: big.NewInt(1),
	})
	assert.True(t, entities.IsRetryable(err))
	reader.AssertNumberOfCalls(t, "CurrentGasPrice", 2)
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateReady.Terminal())
	assert.True(t, StateNoRoute.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateGuarded.Terminal())
}
