package services

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

var (
	wavax      = common.HexToAddress("0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7")
	usdc       = common.HexToAddress("0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E")
	weth       = common.HexToAddress("0x49D5c2BdFfac6CE2BFdB6640F4F80f226bc10bAB")
	adapter1   = common.HexToAddress("0x3614657EDc3cb90BA420E5f4F61679777e4974E3")
	adapter2   = common.HexToAddress("0x5C4d23fd18Fc4128f77426F42237acFcE618D0b1")
	routerAddr = common.HexToAddress("0xC4729E56b831d74bBc18797e0e17A295fA77488c")
	walletAddr = common.HexToAddress("0x000000000000000000000000000000000000bEEF")
)

func twoHopRoute() *entities.Route {
	return &entities.Route{
		Amounts:     []*big.Int{big.NewInt(1e18), big.NewInt(9e17), big.NewInt(3000_000000)},
		Adapters:    []common.Address{adapter1, adapter2},
		Path:        []common.Address{wavax, weth, usdc},
		GasEstimate: big.NewInt(180000),
	}
}

func TestComposeCopiesRoute(t *testing.T) {
	route := twoHopRoute()
	amountIn := big.NewInt(1e18)
	minimum := big.NewInt(2985_000000)

	trade, err := Compose(route, amountIn, minimum)
	require.NoError(t, err)

	assert.Equal(t, route.Path, trade.Path)
	assert.Equal(t, route.Adapters, trade.Adapters)
	assert.Equal(t, 0, trade.AmountIn.Cmp(amountIn))
	assert.Equal(t, 0, trade.AmountOut.Cmp(minimum))

	route.Path[1] = common.Address{}
	route.Adapters[0] = common.Address{}
	amountIn.SetInt64(1)
	minimum.SetInt64(1)

	assert.Equal(t, weth, trade.Path[1])
	assert.Equal(t, adapter1, trade.Adapters[0])
	assert.Equal(t, int64(1e18), trade.AmountIn.Int64())
	assert.Equal(t, int64(2985_000000), trade.AmountOut.Int64())
}

func TestComposeRejectsEmptyRoute(t *testing.T) {
	var invalid *entities.InvalidRouteError

	_, err := Compose(&entities.Route{Amounts: []*big.Int{big.NewInt(1)}, Path: []common.Address{wavax}}, big.NewInt(1), big.NewInt(1))
	assert.ErrorAs(t, err, &invalid)

	_, err = Compose(nil, big.NewInt(1), big.NewInt(1))
	assert.ErrorAs(t, err, &invalid)
}

func TestComposeRejectsMismatchedPath(t *testing.T) {
	route := twoHopRoute()
	route.Path = route.Path[:2]

	_, err := Compose(route, big.NewInt(1), big.NewInt(1))
	var invalid *entities.InvalidRouteError
	assert.ErrorAs(t, err, &invalid)
}

func TestComposeRejectsBadAmounts(t *testing.T) {
	_, err := Compose(twoHopRoute(), big.NewInt(-1), big.NewInt(1))
	assert.ErrorIs(t, err, entities.ErrInvalidAmount)

	_, err = Compose(twoHopRoute(), big.NewInt(1), nil)
	assert.ErrorIs(t, err, entities.ErrInvalidAmount)
}
