package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/logger"
	"github.com/bimakw/route-agent/internal/observability"
)

// State is a step of a single agent run.
type State string

const (
	StateStart        State = "START"
	StateFeesRead     State = "FEES_READ"
	StateRouteQueried State = "ROUTE_QUERIED"
	StateNoRoute      State = "NO_ROUTE"
	StateRouteFound   State = "ROUTE_FOUND"
	StateGuarded      State = "GUARDED"
	StateComposed     State = "COMPOSED"
	StateEncoded      State = "ENCODED"
	StateReady        State = "READY"
	StateFailed       State = "FAILED"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateNoRoute || s == StateReady || s == StateFailed
}

const (
	DefaultMaxHops      = 4
	DefaultMaxAttempts  = 3
	DefaultStageTimeout = 10 * time.Second
	DefaultRetryBackoff = 500 * time.Millisecond
)

// AgentConfig holds run defaults and the retry policy.
type AgentConfig struct {
	Router             common.Address
	DefaultMaxHops     int
	DefaultSlippageBps int
	DefaultFee         *big.Int
	StageTimeout       time.Duration
	MaxAttempts        int
	RetryBackoff       time.Duration
}

func DefaultAgentConfig(router common.Address) AgentConfig {
	return AgentConfig{
		Router:             router,
		DefaultMaxHops:     DefaultMaxHops,
		DefaultSlippageBps: DefaultSlippageBps,
		DefaultFee:         big.NewInt(0),
		StageTimeout:       DefaultStageTimeout,
		MaxAttempts:        DefaultMaxAttempts,
		RetryBackoff:       DefaultRetryBackoff,
	}
}

// TradeRequest describes one trade to build. Zero MaxHops and nil optional
// fields fall back to the agent defaults.
type TradeRequest struct {
	TokenIn     common.Address
	TokenOut    common.Address
	AmountIn    *big.Int
	MaxHops     int
	SlippageBps *int
	Fee         *big.Int
	Recipient   *common.Address
}

// QuoteRequest asks for the best route only.
type QuoteRequest struct {
	TokenIn  common.Address
	TokenOut common.Address
	AmountIn *big.Int
	MaxHops  int
}

// Result is the outcome of a run. State is always terminal.
type Result struct {
	RunID         string            `json:"runId"`
	State         State             `json:"state"`
	Trace         []State           `json:"trace"`
	Attempts      int               `json:"attempts"`
	GasPrice      *big.Int          `json:"gasPrice,omitempty"`
	Route         *entities.Route   `json:"route,omitempty"`
	SlippageBps   int               `json:"slippageBps"`
	MinimumOutput *big.Int          `json:"minimumOutput,omitempty"`
	Trade         *entities.Trade   `json:"trade,omitempty"`
	Payload       *entities.Payload `json:"payload,omitempty"`
	Recipient     common.Address    `json:"recipient"`
	Fee           *big.Int          `json:"fee,omitempty"`
	Err           error             `json:"-"`
	Error         string            `json:"error,omitempty"`
}

func (r *Result) advance(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

func (r *Result) fail(err error) {
	r.advance(StateFailed)
	r.Err = err
	r.Error = err.Error()
}

// Agent runs the trade pipeline: read fees, find route, guard, compose,
// encode. It holds no per-run state, so one Agent may serve concurrent runs.
type Agent struct {
	reader   ChainReader
	finder   RouteFinder
	encoder  PayloadEncoder
	identity IdentityProvider
	cfg      AgentConfig
	logger   *zap.Logger
	metrics  *observability.AgentMetrics
	tracer   trace.Tracer
}

func NewAgent(reader ChainReader, finder RouteFinder, encoder PayloadEncoder, cfg AgentConfig, log *zap.Logger) *Agent {
	if cfg.DefaultMaxHops <= 0 {
		cfg.DefaultMaxHops = DefaultMaxHops
	}
	if cfg.DefaultFee == nil {
		cfg.DefaultFee = big.NewInt(0)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Agent{
		reader:  reader,
		finder:  finder,
		encoder: encoder,
		cfg:     cfg,
		logger:  logger.OrNop(log),
		tracer:  observability.Tracer(),
	}
}

func (a *Agent) WithMetrics(m *observability.AgentMetrics) *Agent {
	a.metrics = m
	return a
}

func (a *Agent) WithTracer(t trace.Tracer) *Agent {
	if t != nil {
		a.tracer = t
	}
	return a
}

// WithIdentity sets the provider used when a request names no recipient.
func (a *Agent) WithIdentity(p IdentityProvider) *Agent {
	a.identity = p
	return a
}

func (a *Agent) Config() AgentConfig {
	return a.cfg
}

type runParams struct {
	tokenIn     common.Address
	tokenOut    common.Address
	amountIn    *big.Int
	maxHops     int
	slippageBps int
	fee         *big.Int
	recipient   common.Address
}

// Run executes the pipeline for req. NO_ROUTE is a successful outcome; the
// returned error is non-nil only when the run ends FAILED, and is the same
// error recorded in the result.
func (a *Agent) Run(ctx context.Context, req TradeRequest) (*Result, error) {
	runID := uuid.NewString()
	log := a.logger.With(zap.String("run_id", runID))

	ctx, span := a.tracer.Start(ctx, "agent.run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	params, err := a.resolve(req)
	if err != nil {
		res := &Result{RunID: runID, Trace: []State{StateStart}}
		res.fail(err)
		a.finish(span, log, res)
		return res, err
	}

	log.Debug("run started",
		zap.String("token_in", params.tokenIn.Hex()),
		zap.String("token_out", params.tokenOut.Hex()),
		zap.String("amount_in", params.amountIn.String()),
		zap.Int("max_hops", params.maxHops),
		zap.Int("slippage_bps", params.slippageBps),
	)

	var res *Result
	attempts, _ := a.retry(ctx, log, func() error {
		res = a.attempt(ctx, log, params)
		return res.Err
	})
	res.RunID = runID
	res.Attempts = attempts

	a.finish(span, log, res)
	return res, res.Err
}

// Quote reads fees and queries the router without building a trade. A quote
// whose route is not viable is returned without error.
func (a *Agent) Quote(ctx context.Context, req QuoteRequest) (*entities.Quote, error) {
	log := a.logger.With(zap.String("run_id", uuid.NewString()))

	ctx, span := a.tracer.Start(ctx, "agent.quote")
	defer span.End()

	maxHops, err := a.checkPair(req.TokenIn, req.TokenOut, req.AmountIn, req.MaxHops)
	if err != nil {
		return nil, err
	}

	var quote *entities.Quote
	_, err = a.retry(ctx, log, func() error {
		gasPrice, err := a.readFees(ctx)
		if err != nil {
			return err
		}
		route, err := a.findRoute(ctx, req.AmountIn, req.TokenIn, req.TokenOut, maxHops, gasPrice)
		if err != nil {
			return err
		}
		quote = &entities.Quote{
			TokenIn:  req.TokenIn,
			TokenOut: req.TokenOut,
			AmountIn: new(big.Int).Set(req.AmountIn),
			MaxHops:  uint8(maxHops),
			GasPrice: gasPrice,
			Route:    route,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("quote failed", zap.Error(err))
		return nil, err
	}
	return quote, nil
}

func (a *Agent) attempt(ctx context.Context, log *zap.Logger, p runParams) *Result {
	res := &Result{
		Trace:       []State{StateStart},
		State:       StateStart,
		SlippageBps: p.slippageBps,
		Recipient:   p.recipient,
		Fee:         p.fee,
	}

	gasPrice, err := a.readFees(ctx)
	if err != nil {
		res.fail(err)
		return res
	}
	res.GasPrice = gasPrice
	res.advance(StateFeesRead)
	log.Debug("fees read", zap.String("gas_price", gasPrice.String()))

	route, err := a.findRoute(ctx, p.amountIn, p.tokenIn, p.tokenOut, p.maxHops, gasPrice)
	if err != nil {
		res.fail(err)
		return res
	}
	res.Route = route
	res.advance(StateRouteQueried)

	if !route.Viable() {
		res.advance(StateNoRoute)
		return res
	}
	res.advance(StateRouteFound)
	a.metrics.ObserveHops(route.Hops())
	log.Debug("route found",
		zap.Int("hops", route.Hops()),
		zap.String("amount_out", route.AmountOut().String()),
	)

	minimum, err := MinimumAcceptable(route.AmountOut(), p.slippageBps)
	if err != nil {
		res.fail(err)
		return res
	}
	res.MinimumOutput = minimum
	res.advance(StateGuarded)

	trade, err := Compose(route, p.amountIn, minimum)
	if err != nil {
		res.fail(err)
		return res
	}
	res.Trade = trade
	res.advance(StateComposed)

	started := time.Now()
	data, err := a.encoder.Encode(trade, p.recipient, p.fee)
	a.metrics.ObserveStage("encode", started)
	if err != nil {
		res.fail(err)
		return res
	}
	res.Payload = &entities.Payload{To: a.cfg.Router, Data: data}
	res.advance(StateEncoded)

	res.advance(StateReady)
	return res
}

func (a *Agent) readFees(ctx context.Context) (*big.Int, error) {
	var gasPrice *big.Int
	err := a.stage(ctx, "read_fees", func(ctx context.Context) error {
		p, err := a.reader.CurrentGasPrice(ctx)
		if err != nil {
			return classify("read gas price", err)
		}
		if p == nil || p.Sign() < 0 {
			return &entities.DecodingError{Field: "gasPrice", Reason: "missing or negative"}
		}
		gasPrice = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.metrics.ObserveGasPrice(gasPrice)
	return gasPrice, nil
}

func (a *Agent) findRoute(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address, maxHops int, gasPrice *big.Int) (*entities.Route, error) {
	var route *entities.Route
	err := a.stage(ctx, "find_route", func(ctx context.Context) error {
		r, err := a.finder.FindBestPath(ctx, amountIn, tokenIn, tokenOut, maxHops, gasPrice)
		if err != nil {
			return classify("find best path", err)
		}
		if r == nil {
			return &entities.DecodingError{Field: "route", Reason: "router returned no result"}
		}
		if r.Found() && !r.WellFormed() {
			return &entities.DecodingError{
				Field: "route",
				Reason: fmt.Sprintf("%d adapters, %d path tokens and %d amounts",
					len(r.Adapters), len(r.Path), len(r.Amounts)),
			}
		}
		route = r
		return nil
	})
	return route, err
}

// stage runs an I/O-bound step under the stage timeout with its own span.
func (a *Agent) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := a.tracer.Start(ctx, "agent."+name)
	defer span.End()
	defer a.metrics.ObserveStage(name, time.Now())

	if a.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.StageTimeout)
		defer cancel()
	}

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// retry calls fn until it succeeds, returns a non-transport error, the
// attempt budget runs out or ctx is done. The wait before attempt n+1 is
// RetryBackoff * n.
func (a *Agent) retry(ctx context.Context, log *zap.Logger, fn func() error) (int, error) {
	attempt := 0
	for {
		attempt++
		a.metrics.ObserveAttempt(attempt > 1)

		err := fn()
		if err == nil || !entities.IsRetryable(err) || attempt >= a.cfg.MaxAttempts || ctx.Err() != nil {
			return attempt, err
		}

		wait := a.cfg.RetryBackoff * time.Duration(attempt)
		log.Warn("transport error, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if !sleep(ctx, wait) {
			return attempt, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (a *Agent) finish(span trace.Span, log *zap.Logger, res *Result) {
	a.metrics.ObserveRun(string(res.State))
	span.SetAttributes(
		attribute.String("state", string(res.State)),
		attribute.Int("attempts", res.Attempts),
	)

	switch res.State {
	case StateReady:
		log.Info("trade ready",
			zap.Int("hops", res.Route.Hops()),
			zap.String("minimum_output", res.MinimumOutput.String()),
			zap.Int("payload_bytes", len(res.Payload.Data)),
			zap.Int("attempts", res.Attempts),
		)
	case StateNoRoute:
		log.Warn("no route found", zap.Int("attempts", res.Attempts))
	case StateFailed:
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Error)
		log.Error("run failed",
			zap.Error(res.Err),
			zap.Bool("timeout", entities.IsTimeout(res.Err)),
			zap.Int("attempts", res.Attempts),
		)
	}
}

func (a *Agent) resolve(req TradeRequest) (runParams, error) {
	maxHops, err := a.checkPair(req.TokenIn, req.TokenOut, req.AmountIn, req.MaxHops)
	if err != nil {
		return runParams{}, err
	}

	slippage := a.cfg.DefaultSlippageBps
	if req.SlippageBps != nil {
		slippage = *req.SlippageBps
	}
	if slippage < 0 || slippage > entities.BasisPointDenominator {
		return runParams{}, fmt.Errorf("%w: got %d", entities.ErrInvalidTolerance, slippage)
	}

	fee := a.cfg.DefaultFee
	if req.Fee != nil {
		fee = req.Fee
	}
	if err := entities.ValidateAmount(fee); err != nil {
		return runParams{}, fmt.Errorf("fee: %w", err)
	}

	var recipient common.Address
	switch {
	case req.Recipient != nil:
		recipient = *req.Recipient
	case a.identity != nil:
		recipient = a.identity.Address()
	}
	if recipient == (common.Address{}) {
		return runParams{}, entities.ErrMissingRecipient
	}

	return runParams{
		tokenIn:     req.TokenIn,
		tokenOut:    req.TokenOut,
		amountIn:    new(big.Int).Set(req.AmountIn),
		maxHops:     maxHops,
		slippageBps: slippage,
		fee:         new(big.Int).Set(fee),
		recipient:   recipient,
	}, nil
}

func (a *Agent) checkPair(tokenIn, tokenOut common.Address, amountIn *big.Int, maxHops int) (int, error) {
	if tokenIn == tokenOut {
		return 0, entities.ErrSameToken
	}
	if err := entities.ValidateAmount(amountIn); err != nil {
		return 0, fmt.Errorf("amount in: %w", err)
	}
	if amountIn.Sign() == 0 {
		return 0, fmt.Errorf("amount in: %w: must be positive", entities.ErrInvalidAmount)
	}
	if maxHops == 0 {
		maxHops = a.cfg.DefaultMaxHops
	}
	if maxHops < 1 || maxHops > 255 {
		return 0, fmt.Errorf("%w: got %d", entities.ErrInvalidMaxHops, maxHops)
	}
	return maxHops, nil
}

// classify keeps typed errors and wraps anything else from an I/O stage as a
// transport failure.
func classify(op string, err error) error {
	var (
		te *entities.TransportError
		de *entities.DecodingError
		ee *entities.EncodingError
		ie *entities.InvalidRouteError
	)
	switch {
	case errors.As(err, &te), errors.As(err, &de), errors.As(err, &ee), errors.As(err, &ie),
		errors.Is(err, entities.ErrInvalidAmount),
		errors.Is(err, entities.ErrInvalidMaxHops):
		return err
	}
	return entities.NewTransportError(op, err)
}

// IsArgumentError reports whether err was caused by the request rather than
// the network or the router.
func IsArgumentError(err error) bool {
	return errors.Is(err, entities.ErrInvalidAmount) ||
		errors.Is(err, entities.ErrInvalidTolerance) ||
		errors.Is(err, entities.ErrInvalidMaxHops) ||
		errors.Is(err, entities.ErrMissingRecipient) ||
		errors.Is(err, entities.ErrSameToken)
}
