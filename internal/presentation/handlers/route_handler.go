package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/domain/services"
)

// RouteQuoter finds the best route without building a trade.
type RouteQuoter interface {
	Quote(ctx context.Context, req services.QuoteRequest) (*entities.Quote, error)
}

// TokenResolver turns token references into addresses and metadata.
type TokenResolver interface {
	ParseToken(ref string) (common.Address, error)
	Describe(ctx context.Context, addr common.Address) entities.Token
}

// RouteHandler handles route quote requests
type RouteHandler struct {
	quoter RouteQuoter
	tokens TokenResolver
}

func NewRouteHandler(quoter RouteQuoter, tokens TokenResolver) *RouteHandler {
	return &RouteHandler{quoter: quoter, tokens: tokens}
}

// RouteResponse represents a route quote response
type RouteResponse struct {
	TokenIn            entities.Token `json:"tokenIn"`
	TokenOut           entities.Token `json:"tokenOut"`
	AmountIn           string         `json:"amountIn"`
	AmountOut          string         `json:"amountOut"`
	AmountOutFormatted string         `json:"amountOutFormatted"`
	MaxHops            uint8          `json:"maxHops"`
	Hops               int            `json:"hops"`
	GasPrice           string         `json:"gasPrice"`
	GasEstimate        string         `json:"gasEstimate"`
	Path               []string       `json:"path"`
	Adapters           []string       `json:"adapters"`
	Amounts            []string       `json:"amounts"`
}

// GetRoute handles GET /api/v1/route
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tokenInRef := q.Get("tokenIn")
	tokenOutRef := q.Get("tokenOut")
	amountInStr := q.Get("amountIn")

	if tokenInRef == "" || tokenOutRef == "" || amountInStr == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "tokenIn, tokenOut, and amountIn are required")
		return
	}

	tokenIn, err := h.tokens.ParseToken(tokenInRef)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_token_in", err.Error())
		return
	}
	tokenOut, err := h.tokens.ParseToken(tokenOutRef)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_token_out", err.Error())
		return
	}

	amountIn, err := entities.ParseAmount(amountInStr)
	if err != nil || amountIn.Sign() == 0 {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amountIn must be a positive integer")
		return
	}

	var maxHops int
	if s := q.Get("maxHops"); s != "" {
		maxHops, err = strconv.Atoi(s)
		if err != nil || maxHops < 1 || maxHops > 255 {
			writeError(w, http.StatusBadRequest, "invalid_max_hops", "maxHops must be 1-255")
			return
		}
	}

	quote, err := h.quoter.Quote(r.Context(), services.QuoteRequest{
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
		AmountIn: amountIn,
		MaxHops:  maxHops,
	})
	if err != nil {
		writeRunError(w, err)
		return
	}
	if !quote.Route.Viable() {
		writeError(w, http.StatusNotFound, "no_route", "router found no route between "+tokenIn.Hex()+" and "+tokenOut.Hex())
		return
	}

	writeJSON(w, http.StatusOK, NewRouteResponse(r.Context(), h.tokens, quote))
}

// NewRouteResponse renders quote with token metadata from tokens.
func NewRouteResponse(ctx context.Context, tokens TokenResolver, quote *entities.Quote) RouteResponse {
	tokenOut := tokens.Describe(ctx, quote.TokenOut)
	route := quote.Route

	return RouteResponse{
		TokenIn:            tokens.Describe(ctx, quote.TokenIn),
		TokenOut:           tokenOut,
		AmountIn:           amountString(quote.AmountIn),
		AmountOut:          route.AmountOut().String(),
		AmountOutFormatted: entities.FormatUnits(route.AmountOut(), tokenOut.Decimals),
		MaxHops:            quote.MaxHops,
		Hops:               route.Hops(),
		GasPrice:           amountString(quote.GasPrice),
		GasEstimate:        amountString(route.GasEstimate),
		Path:               hexAddresses(route.Path),
		Adapters:           hexAddresses(route.Adapters),
		Amounts:            amountStrings(route.Amounts),
	}
}
