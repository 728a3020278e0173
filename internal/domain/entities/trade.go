package entities

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Trade is the descriptor submitted to the router's swap entry point.
// AmountOut is the minimum acceptable output, not the quoted one.
type Trade struct {
	AmountIn  *big.Int         `json:"amountIn"`
	AmountOut *big.Int         `json:"amountOut"`
	Path      []common.Address `json:"path"`
	Adapters  []common.Address `json:"adapters"`
}

// Payload is the call a downstream submitter sends to the router.
type Payload struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}
