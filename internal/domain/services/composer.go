package services

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

// Compose builds the trade descriptor for a found route. The descriptor owns
// copies of the route's path and adapters.
func Compose(route *entities.Route, amountIn, minimumOutput *big.Int) (*entities.Trade, error) {
	if !route.Found() {
		return nil, &entities.InvalidRouteError{Reason: "route has no adapters"}
	}
	if len(route.Path) != len(route.Adapters)+1 {
		return nil, &entities.InvalidRouteError{
			Reason: fmt.Sprintf("path has %d tokens for %d adapters", len(route.Path), len(route.Adapters)),
		}
	}
	if err := entities.ValidateAmount(amountIn); err != nil {
		return nil, fmt.Errorf("amount in: %w", err)
	}
	if err := entities.ValidateAmount(minimumOutput); err != nil {
		return nil, fmt.Errorf("minimum output: %w", err)
	}

	return &entities.Trade{
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: new(big.Int).Set(minimumOutput),
		Path:      append([]common.Address(nil), route.Path...),
		Adapters:  append([]common.Address(nil), route.Adapters...),
	}, nil
}
