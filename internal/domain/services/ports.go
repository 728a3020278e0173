package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

// ChainReader reads current network fee conditions.
type ChainReader interface {
	CurrentGasPrice(ctx context.Context) (*big.Int, error)
}

// RouteFinder asks the router oracle for the best path. A route with no
// adapters is a valid answer meaning no route exists.
type RouteFinder interface {
	FindBestPath(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address, maxHops int, gasPrice *big.Int) (*entities.Route, error)
}

// PayloadEncoder turns a trade into router calldata. It performs no I/O.
type PayloadEncoder interface {
	Encode(trade *entities.Trade, recipient common.Address, fee *big.Int) ([]byte, error)
}

// IdentityProvider supplies the caller's address for the recipient field.
type IdentityProvider interface {
	Address() common.Address
}
