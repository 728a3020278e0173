package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/infrastructure/cache"
)

type fakeMetadataReader struct {
	mu     sync.Mutex
	tokens map[common.Address]entities.Token
	calls  int
}

func (f *fakeMetadataReader) Metadata(ctx context.Context, addr common.Address) (*entities.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	tok, ok := f.tokens[addr]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return &tok, nil
}

func newTokenService(t *testing.T, reader *fakeMetadataReader) *TokenService {
	t.Helper()
	registry := entities.NewTokenRegistry()
	require.NoError(t, registry.LoadConfigs([]entities.TokenConfig{
		{Address: wavax.Hex(), Symbol: "WAVAX", Name: "Wrapped AVAX", Decimals: 18},
	}))
	c, err := cache.NewLRUCache(16)
	require.NoError(t, err)
	return NewTokenService(43114, registry, reader, c, nil)
}

func TestTokenServiceResolve(t *testing.T) {
	reader := &fakeMetadataReader{tokens: map[common.Address]entities.Token{
		usdc: {Address: usdc, Symbol: "USDC", Decimals: 6},
	}}
	svc := newTokenService(t, reader)
	ctx := context.Background()

	tok, err := svc.Resolve(ctx, wavax)
	require.NoError(t, err)
	assert.Equal(t, "WAVAX", tok.Symbol)
	assert.Equal(t, 0, reader.calls)

	tok, err = svc.Resolve(ctx, usdc)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), tok.Decimals)

	_, err = svc.Resolve(ctx, usdc)
	require.NoError(t, err)
	assert.Equal(t, 1, reader.calls, "second lookup should hit the cache")
}

func TestTokenServiceResolveMany(t *testing.T) {
	reader := &fakeMetadataReader{tokens: map[common.Address]entities.Token{
		usdc: {Address: usdc, Symbol: "USDC", Decimals: 6},
		weth: {Address: weth, Symbol: "WETH.e", Decimals: 18},
	}}
	svc := newTokenService(t, reader)

	tokens, err := svc.ResolveMany(context.Background(), []common.Address{usdc, wavax, weth})
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "USDC", tokens[0].Symbol)
	assert.Equal(t, "WAVAX", tokens[1].Symbol)
	assert.Equal(t, "WETH.e", tokens[2].Symbol)

	_, err = svc.ResolveMany(context.Background(), []common.Address{usdc, adapter1})
	assert.Error(t, err)
}

func TestTokenServiceDescribeFallsBack(t *testing.T) {
	svc := newTokenService(t, &fakeMetadataReader{})

	tok := svc.Describe(context.Background(), adapter1)
	assert.Equal(t, "UNKNOWN", tok.Symbol)
	assert.Equal(t, adapter1, tok.Address)
}

func TestTokenServiceParseToken(t *testing.T) {
	svc := newTokenService(t, &fakeMetadataReader{})

	addr, err := svc.ParseToken("wavax")
	require.NoError(t, err)
	assert.Equal(t, wavax, addr)

	addr, err = svc.ParseToken(usdc.Hex())
	require.NoError(t, err)
	assert.Equal(t, usdc, addr)

	_, err = svc.ParseToken("NOPE")
	assert.Error(t, err)
}
