package entities

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Route is the router oracle's answer to a best-path query. Adapters[i]
// executes the hop from Path[i] to Path[i+1], and Amounts[i+1] is the amount
// expected after that hop.
type Route struct {
	Amounts     []*big.Int       `json:"amounts"`
	Adapters    []common.Address `json:"adapters"`
	Path        []common.Address `json:"path"`
	GasEstimate *big.Int         `json:"gasEstimate"`
}

// Found reports whether the oracle returned a viable route. An empty adapters
// sequence means "no route" and is not an error.
func (r *Route) Found() bool {
	return r != nil && len(r.Adapters) > 0
}

// Viable reports whether the route was found and is expected to produce a
// non-zero output.
func (r *Route) Viable() bool {
	out := r.AmountOut()
	return r.Found() && out != nil && out.Sign() > 0
}

// Hops returns the number of conversions in the route.
func (r *Route) Hops() int {
	if r == nil {
		return 0
	}
	return len(r.Adapters)
}

// AmountIn returns the first expected amount, or nil for an empty route.
func (r *Route) AmountIn() *big.Int {
	if r == nil || len(r.Amounts) == 0 {
		return nil
	}
	return r.Amounts[0]
}

// AmountOut returns the final expected amount, or nil for an empty route.
func (r *Route) AmountOut() *big.Int {
	if r == nil || len(r.Amounts) == 0 {
		return nil
	}
	return r.Amounts[len(r.Amounts)-1]
}

// WellFormed checks len(adapters) == len(path)-1 == len(amounts)-1.
func (r *Route) WellFormed() bool {
	if r == nil {
		return false
	}
	return len(r.Adapters) == len(r.Path)-1 && len(r.Path) == len(r.Amounts)
}

// Clone returns a deep copy of the route.
func (r *Route) Clone() *Route {
	if r == nil {
		return nil
	}
	amounts := make([]*big.Int, len(r.Amounts))
	for i, a := range r.Amounts {
		amounts[i] = copyBig(a)
	}
	return &Route{
		Amounts:     amounts,
		Adapters:    append([]common.Address(nil), r.Adapters...),
		Path:        append([]common.Address(nil), r.Path...),
		GasEstimate: copyBig(r.GasEstimate),
	}
}

// Quote is a route together with the fee conditions it was requested under.
type Quote struct {
	TokenIn  common.Address `json:"tokenIn"`
	TokenOut common.Address `json:"tokenOut"`
	AmountIn *big.Int       `json:"amountIn"`
	MaxHops  uint8          `json:"maxHops"`
	GasPrice *big.Int       `json:"gasPrice"`
	Route    *Route         `json:"route"`
}
