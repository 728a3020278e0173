package router

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

// tradeArg mirrors the swap entry point's trade tuple.
type tradeArg struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	Path      []common.Address
	Adapters  []common.Address
}

// Encoder builds swap calldata. It holds no mutable state.
type Encoder struct {
	schema *Schema
}

func NewEncoder(schema *Schema) *Encoder {
	if schema == nil {
		schema = SchemaV1
	}
	return &Encoder{schema: schema}
}

func (e *Encoder) Schema() *Schema {
	return e.schema
}

// Encode packs swapNoSplit(trade, recipient, fee). Identical inputs always
// produce identical bytes.
func (e *Encoder) Encode(trade *entities.Trade, recipient common.Address, fee *big.Int) ([]byte, error) {
	if err := checkTrade(trade); err != nil {
		return nil, err
	}
	if err := entities.ValidateAmount(fee); err != nil {
		return nil, &entities.EncodingError{Field: "fee", Err: err}
	}

	arg := tradeArg{
		AmountIn:  trade.AmountIn,
		AmountOut: trade.AmountOut,
		Path:      trade.Path,
		Adapters:  trade.Adapters,
	}
	data, err := e.schema.abi.Pack(swapMethod, arg, recipient, fee)
	if err != nil {
		return nil, &entities.EncodingError{Field: swapMethod, Err: err}
	}
	return data, nil
}

// Decode is the inverse of Encode.
func (e *Encoder) Decode(data []byte) (*entities.Trade, common.Address, *big.Int, error) {
	method := e.schema.abi.Methods[swapMethod]
	if len(data) < 4 {
		return nil, common.Address{}, nil, &entities.DecodingError{Field: "selector", Reason: fmt.Sprintf("payload is %d bytes", len(data))}
	}
	if !bytes.Equal(data[:4], method.ID) {
		return nil, common.Address{}, nil, &entities.DecodingError{
			Field:  "selector",
			Reason: fmt.Sprintf("got %x, want %x", data[:4], method.ID),
		}
	}

	out, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, common.Address{}, nil, &entities.DecodingError{Field: swapMethod, Err: err}
	}
	if len(out) != 3 {
		return nil, common.Address{}, nil, &entities.DecodingError{Field: swapMethod, Reason: fmt.Sprintf("got %d arguments, want 3", len(out))}
	}

	arg := *abi.ConvertType(out[0], new(tradeArg)).(*tradeArg)
	recipient := *abi.ConvertType(out[1], new(common.Address)).(*common.Address)
	fee := *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)

	return &entities.Trade{
		AmountIn:  arg.AmountIn,
		AmountOut: arg.AmountOut,
		Path:      arg.Path,
		Adapters:  arg.Adapters,
	}, recipient, fee, nil
}

func checkTrade(t *entities.Trade) error {
	if t == nil {
		return &entities.EncodingError{Field: "trade", Reason: "missing"}
	}
	if len(t.Adapters) == 0 {
		return &entities.EncodingError{Field: "adapters", Reason: "empty"}
	}
	if len(t.Path) != len(t.Adapters)+1 {
		return &entities.EncodingError{
			Field:  "path",
			Reason: fmt.Sprintf("%d tokens for %d adapters", len(t.Path), len(t.Adapters)),
		}
	}
	if err := entities.ValidateAmount(t.AmountIn); err != nil {
		return &entities.EncodingError{Field: "amountIn", Err: err}
	}
	if err := entities.ValidateAmount(t.AmountOut); err != nil {
		return &entities.EncodingError{Field: "amountOut", Err: err}
	}
	return nil
}
