package erc20

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

// ERC-20 metadata selectors (keccak256 of the signature, first 4 bytes)
var (
	// symbol() returns (string)
	symbolSelector = common.Hex2Bytes("95d89b41")
	// name() returns (string)
	nameSelector = common.Hex2Bytes("06fdde03")
	// decimals() returns (uint8)
	decimalsSelector = common.Hex2Bytes("313ce567")
)

var stringResult = abi.Arguments{{Type: mustType("string")}}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// Multicaller performs several read-only calls at once.
type Multicaller interface {
	Multicall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error)
}

// Reader fetches token metadata from the token contract.
type Reader struct {
	caller Multicaller
}

func NewReader(caller Multicaller) *Reader {
	return &Reader{caller: caller}
}

// Metadata reads symbol, name and decimals in one batch.
func (r *Reader) Metadata(ctx context.Context, token common.Address) (*entities.Token, error) {
	results, err := r.caller.Multicall(ctx, []ethereum.CallMsg{
		{To: &token, Data: symbolSelector},
		{To: &token, Data: nameSelector},
		{To: &token, Data: decimalsSelector},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata of %s: %w", token.Hex(), err)
	}
	if len(results) != 3 {
		return nil, &entities.DecodingError{Field: "metadata", Reason: fmt.Sprintf("got %d results, want 3", len(results))}
	}

	symbol, err := decodeString(results[0])
	if err != nil {
		return nil, &entities.DecodingError{Field: "symbol", Err: err}
	}
	name, err := decodeString(results[1])
	if err != nil {
		return nil, &entities.DecodingError{Field: "name", Err: err}
	}
	decimals, err := decodeDecimals(results[2])
	if err != nil {
		return nil, &entities.DecodingError{Field: "decimals", Err: err}
	}

	return &entities.Token{
		Address:  token,
		Symbol:   symbol,
		Name:     name,
		Decimals: decimals,
	}, nil
}

// decodeString accepts both the standard string return and the bytes32
// form some older tokens use.
func decodeString(data []byte) (string, error) {
	if len(data) == 32 {
		return strings.TrimSpace(string(bytes.TrimRight(data, "\x00"))), nil
	}
	out, err := stringResult.Unpack(data)
	if err != nil {
		return "", err
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected type %T", out[0])
	}
	return s, nil
}

func decodeDecimals(data []byte) (uint8, error) {
	if len(data) < 32 {
		return 0, fmt.Errorf("invalid response length %d", len(data))
	}
	v := new(big.Int).SetBytes(data[:32])
	if !v.IsUint64() || v.Uint64() > 255 {
		return 0, fmt.Errorf("value %s out of range", v)
	}
	return uint8(v.Uint64()), nil
}
