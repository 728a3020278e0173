package handlers

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/domain/services"
)

var (
	errMissingParams    = errors.New("tokenIn, tokenOut, and amountIn are required")
	errInvalidRecipient = errors.New("recipient is not a valid address")
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// writeRunError maps the agent's error taxonomy to HTTP statuses.
func writeRunError(w http.ResponseWriter, err error) {
	var (
		decodeErr *entities.DecodingError
		encodeErr *entities.EncodingError
		routeErr  *entities.InvalidRouteError
	)
	switch {
	case services.IsArgumentError(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case entities.IsTimeout(err):
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout", err.Error())
	case entities.IsRetryable(err):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
	case errors.As(err, &decodeErr):
		writeError(w, http.StatusBadGateway, "bad_router_response", err.Error())
	case errors.As(err, &encodeErr):
		writeError(w, http.StatusInternalServerError, "encoding_failed", err.Error())
	case errors.As(err, &routeErr):
		writeError(w, http.StatusInternalServerError, "invalid_route", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func hexAddresses(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}

func amountStrings(amounts []*big.Int) []string {
	out := make([]string, len(amounts))
	for i, a := range amounts {
		out[i] = a.String()
	}
	return out
}

func amountString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
