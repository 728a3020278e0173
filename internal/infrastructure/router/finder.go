package router

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/logger"
)

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// formattedOffer mirrors the router's FormattedOffer tuple.
type formattedOffer struct {
	Amounts     []*big.Int
	Adapters    []common.Address
	Path        []common.Address
	GasEstimate *big.Int
}

// Finder queries the router contract for the best path.
type Finder struct {
	caller  ContractCaller
	address common.Address
	schema  *Schema
	logger  *zap.Logger
}

func NewFinder(caller ContractCaller, address common.Address, schema *Schema, log *zap.Logger) *Finder {
	if schema == nil {
		schema = SchemaV1
	}
	return &Finder{
		caller:  caller,
		address: address,
		schema:  schema,
		logger:  logger.OrNop(log),
	}
}

// PackQuery builds the calldata of the best-path query.
func (s *Schema) PackQuery(amountIn *big.Int, tokenIn, tokenOut common.Address, maxHops int, gasPrice *big.Int) ([]byte, error) {
	if maxHops < 1 || maxHops > 255 {
		return nil, fmt.Errorf("%w: got %d", entities.ErrInvalidMaxHops, maxHops)
	}
	if err := entities.ValidateAmount(amountIn); err != nil {
		return nil, &entities.EncodingError{Field: "amountIn", Err: err}
	}
	if err := entities.ValidateAmount(gasPrice); err != nil {
		return nil, &entities.EncodingError{Field: "gasPrice", Err: err}
	}

	data, err := s.abi.Pack(queryMethod, amountIn, tokenIn, tokenOut, uint8(maxHops), gasPrice)
	if err != nil {
		return nil, &entities.EncodingError{Field: queryMethod, Err: err}
	}
	return data, nil
}

// UnpackOffer decodes the query's return data into a route without checking
// it against the request.
func (s *Schema) UnpackOffer(data []byte) (*entities.Route, error) {
	out, err := s.abi.Methods[queryMethod].Outputs.Unpack(data)
	if err != nil {
		return nil, &entities.DecodingError{Field: queryMethod, Err: err}
	}

	var offer formattedOffer
	if s.tupleOffer {
		if len(out) != 1 {
			return nil, &entities.DecodingError{Field: queryMethod, Reason: fmt.Sprintf("got %d values, want 1", len(out))}
		}
		offer = *abi.ConvertType(out[0], new(formattedOffer)).(*formattedOffer)
	} else {
		if len(out) != 4 {
			return nil, &entities.DecodingError{Field: queryMethod, Reason: fmt.Sprintf("got %d values, want 4", len(out))}
		}
		offer.Amounts = *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
		offer.Adapters = *abi.ConvertType(out[1], new([]common.Address)).(*[]common.Address)
		offer.Path = *abi.ConvertType(out[2], new([]common.Address)).(*[]common.Address)
		offer.GasEstimate = *abi.ConvertType(out[3], new(*big.Int)).(**big.Int)
	}

	return &entities.Route{
		Amounts:     offer.Amounts,
		Adapters:    offer.Adapters,
		Path:        offer.Path,
		GasEstimate: offer.GasEstimate,
	}, nil
}

// FindBestPath asks the router for the best route. A response with no
// adapters, or with a zero final amount, is returned as a route without
// adapters.
func (f *Finder) FindBestPath(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address, maxHops int, gasPrice *big.Int) (*entities.Route, error) {
	data, err := f.schema.PackQuery(amountIn, tokenIn, tokenOut, maxHops, gasPrice)
	if err != nil {
		return nil, err
	}

	result, err := f.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &f.address,
		Data: data,
	})
	if err != nil {
		return nil, err
	}

	route, err := f.schema.UnpackOffer(result)
	if err != nil {
		return nil, err
	}

	if len(route.Adapters) == 0 {
		f.logger.Debug("router returned no adapters",
			zap.String("token_in", tokenIn.Hex()),
			zap.String("token_out", tokenOut.Hex()),
		)
		return noRoute(route), nil
	}

	if err := checkOffer(route, tokenIn, tokenOut, maxHops); err != nil {
		return nil, err
	}

	if route.AmountOut().Sign() == 0 {
		f.logger.Debug("router returned zero output",
			zap.String("token_in", tokenIn.Hex()),
			zap.String("token_out", tokenOut.Hex()),
		)
		return noRoute(route), nil
	}

	return route, nil
}

func noRoute(r *entities.Route) *entities.Route {
	return &entities.Route{
		Amounts:     r.Amounts,
		Path:        r.Path,
		GasEstimate: r.GasEstimate,
	}
}

func checkOffer(r *entities.Route, tokenIn, tokenOut common.Address, maxHops int) error {
	if !r.WellFormed() {
		return &entities.DecodingError{
			Field: "offer",
			Reason: fmt.Sprintf("%d adapters, %d path tokens and %d amounts",
				len(r.Adapters), len(r.Path), len(r.Amounts)),
		}
	}
	if r.Path[0] != tokenIn || r.Path[len(r.Path)-1] != tokenOut {
		return &entities.DecodingError{
			Field:  "path",
			Reason: fmt.Sprintf("route %s -> %s does not connect %s -> %s", r.Path[0].Hex(), r.Path[len(r.Path)-1].Hex(), tokenIn.Hex(), tokenOut.Hex()),
		}
	}
	if r.Hops() > maxHops {
		return &entities.DecodingError{
			Field:  "adapters",
			Reason: fmt.Sprintf("%d hops exceed limit %d", r.Hops(), maxHops),
		}
	}
	for i, a := range r.Amounts {
		if a == nil {
			return &entities.DecodingError{Field: fmt.Sprintf("amounts[%d]", i), Reason: "missing"}
		}
	}
	if r.GasEstimate == nil {
		return &entities.DecodingError{Field: "gasEstimate", Reason: "missing"}
	}
	return nil
}
