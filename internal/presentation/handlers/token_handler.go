package handlers

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

// TokenLookup resolves on-chain token metadata.
type TokenLookup interface {
	ParseToken(ref string) (common.Address, error)
	Resolve(ctx context.Context, addr common.Address) (*entities.Token, error)
}

// TokenHandler handles token metadata requests
type TokenHandler struct {
	tokens TokenLookup
}

func NewTokenHandler(tokens TokenLookup) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// GetToken handles GET /api/v1/tokens/{token}
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "token")

	addr, err := h.tokens.ParseToken(ref)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_token", err.Error())
		return
	}

	tok, err := h.tokens.Resolve(r.Context(), addr)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}
