package erc20

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

type fakeMulticaller struct {
	results [][]byte
	err     error
	calls   []ethereum.CallMsg
}

func (f *fakeMulticaller) Multicall(ctx context.Context, calls []ethereum.CallMsg) ([][]byte, error) {
	f.calls = calls
	return f.results, f.err
}

func packString(t *testing.T, s string) []byte {
	t.Helper()
	data, err := stringResult.Pack(s)
	require.NoError(t, err)
	return data
}

func word(b byte) []byte {
	w := make([]byte, 32)
	w[31] = b
	return w
}

var token = common.HexToAddress("0xA1077a294dDE1B09bB078844df40758a5D0f9a27")

func TestReaderMetadata(t *testing.T) {
	caller := &fakeMulticaller{results: [][]byte{
		packString(t, "WPLS"),
		packString(t, "Wrapped Pulse"),
		word(18),
	}}

	tok, err := NewReader(caller).Metadata(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, token, tok.Address)
	assert.Equal(t, "WPLS", tok.Symbol)
	assert.Equal(t, "Wrapped Pulse", tok.Name)
	assert.Equal(t, uint8(18), tok.Decimals)

	require.Len(t, caller.calls, 3)
	assert.Equal(t, symbolSelector, caller.calls[0].Data)
	assert.Equal(t, nameSelector, caller.calls[1].Data)
	assert.Equal(t, decimalsSelector, caller.calls[2].Data)
	assert.Equal(t, token, *caller.calls[0].To)
}

func TestReaderBytes32Symbol(t *testing.T) {
	symbol := make([]byte, 32)
	copy(symbol, "MKR")
	name := make([]byte, 32)
	copy(name, "Maker")

	tok, err := NewReader(&fakeMulticaller{results: [][]byte{symbol, name, word(18)}}).
		Metadata(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "MKR", tok.Symbol)
	assert.Equal(t, "Maker", tok.Name)
}

func TestReaderErrors(t *testing.T) {
	_, err := NewReader(&fakeMulticaller{err: entities.NewTransportError("eth_call", errors.New("down"))}).
		Metadata(context.Background(), token)
	assert.True(t, entities.IsRetryable(err))

	_, err = NewReader(&fakeMulticaller{results: [][]byte{packString(t, "X"), packString(t, "X"), {0x01}}}).
		Metadata(context.Background(), token)
	var de *entities.DecodingError
	assert.ErrorAs(t, err, &de)

	tooBig := make([]byte, 32)
	tooBig[30] = 0x01
	_, err = NewReader(&fakeMulticaller{results: [][]byte{packString(t, "X"), packString(t, "X"), tooBig}}).
		Metadata(context.Background(), token)
	assert.ErrorAs(t, err, &de)

	_, err = NewReader(&fakeMulticaller{results: [][]byte{{0x01, 0x02}, packString(t, "X"), word(6)}}).
		Metadata(context.Background(), token)
	assert.ErrorAs(t, err, &de)
}
