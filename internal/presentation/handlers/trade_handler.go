package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/domain/services"
)

// TradeBuilder runs the full pipeline for a trade.
type TradeBuilder interface {
	Run(ctx context.Context, req services.TradeRequest) (*services.Result, error)
}

// TradeHandler builds unsigned swap payloads. It never broadcasts.
type TradeHandler struct {
	builder TradeBuilder
	tokens  TokenResolver
}

func NewTradeHandler(builder TradeBuilder, tokens TokenResolver) *TradeHandler {
	return &TradeHandler{builder: builder, tokens: tokens}
}

// TradeRequest is the POST /api/v1/trades body
type TradeRequest struct {
	TokenIn     string `json:"tokenIn"`
	TokenOut    string `json:"tokenOut"`
	AmountIn    string `json:"amountIn"`
	MaxHops     int    `json:"maxHops,omitempty"`
	SlippageBps *int   `json:"slippageBps,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
	Fee         string `json:"fee,omitempty"`
}

// TradeResponse carries the payload a submitter sends to the router.
type TradeResponse struct {
	RunID        string   `json:"runId"`
	State        string   `json:"state"`
	Trace        []string `json:"trace"`
	Attempts     int      `json:"attempts"`
	GasPrice     string   `json:"gasPrice"`
	AmountIn     string   `json:"amountIn"`
	QuotedOut    string   `json:"quotedAmountOut"`
	MinAmountOut string   `json:"minAmountOut"`
	SlippageBps  int      `json:"slippageBps"`
	Path         []string `json:"path"`
	Adapters     []string `json:"adapters"`
	Recipient    string   `json:"recipient"`
	Fee          string   `json:"fee"`
	To           string   `json:"to"`
	Data         string   `json:"data"`
	Error        string   `json:"error,omitempty"`
}

// CreateTrade handles POST /api/v1/trades
func (h *TradeHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var body TradeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	req, status, code, err := h.parse(body)
	if err != nil {
		writeError(w, status, code, err.Error())
		return
	}

	res, err := h.builder.Run(r.Context(), req)
	if err != nil {
		writeRunError(w, err)
		return
	}
	if res.State == services.StateNoRoute {
		writeError(w, http.StatusNotFound, "no_route", "router found no route between "+req.TokenIn.Hex()+" and "+req.TokenOut.Hex())
		return
	}

	writeJSON(w, http.StatusOK, NewTradeResponse(res))
}

func (h *TradeHandler) parse(body TradeRequest) (services.TradeRequest, int, string, error) {
	var req services.TradeRequest

	if body.TokenIn == "" || body.TokenOut == "" || body.AmountIn == "" {
		return req, http.StatusBadRequest, "missing_params", errMissingParams
	}

	var err error
	if req.TokenIn, err = h.tokens.ParseToken(body.TokenIn); err != nil {
		return req, http.StatusBadRequest, "invalid_token_in", err
	}
	if req.TokenOut, err = h.tokens.ParseToken(body.TokenOut); err != nil {
		return req, http.StatusBadRequest, "invalid_token_out", err
	}
	if req.AmountIn, err = entities.ParseAmount(body.AmountIn); err != nil {
		return req, http.StatusBadRequest, "invalid_amount", err
	}

	req.MaxHops = body.MaxHops
	req.SlippageBps = body.SlippageBps

	if body.Recipient != "" {
		if !common.IsHexAddress(body.Recipient) {
			return req, http.StatusBadRequest, "invalid_recipient", errInvalidRecipient
		}
		recipient := common.HexToAddress(body.Recipient)
		req.Recipient = &recipient
	}
	if body.Fee != "" {
		if req.Fee, err = entities.ParseAmount(body.Fee); err != nil {
			return req, http.StatusBadRequest, "invalid_fee", err
		}
	}
	return req, 0, "", nil
}

// NewTradeResponse renders a run result. Fields of stages the run never
// reached are left empty.
func NewTradeResponse(res *services.Result) TradeResponse {
	trace := make([]string, len(res.Trace))
	for i, s := range res.Trace {
		trace[i] = string(s)
	}
	resp := TradeResponse{
		RunID:        res.RunID,
		State:        string(res.State),
		Trace:        trace,
		Attempts:     res.Attempts,
		GasPrice:     amountString(res.GasPrice),
		QuotedOut:    amountString(res.Route.AmountOut()),
		MinAmountOut: amountString(res.MinimumOutput),
		SlippageBps:  res.SlippageBps,
		Fee:          amountString(res.Fee),
		Error:        res.Error,
	}
	if res.Trade != nil {
		resp.AmountIn = amountString(res.Trade.AmountIn)
		resp.Path = hexAddresses(res.Trade.Path)
		resp.Adapters = hexAddresses(res.Trade.Adapters)
	}
	if res.Recipient != (common.Address{}) {
		resp.Recipient = res.Recipient.Hex()
	}
	if res.Payload != nil {
		resp.To = res.Payload.To.Hex()
		resp.Data = res.Payload.Data.String()
	}
	return resp
}
