package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	ChainID int64  `json:"chainId"`
	Router  string `json:"router"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	version string
	chainID int64
	router  common.Address
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, chainID int64, router common.Address) *HealthHandler {
	return &HealthHandler{version: version, chainID: chainID, router: router}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
		ChainID: h.chainID,
		Router:  h.router.Hex(),
	})
}
