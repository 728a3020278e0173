package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/infrastructure/cache"
	"github.com/bimakw/route-agent/internal/logger"
)

// MetadataReader reads token metadata from the chain.
type MetadataReader interface {
	Metadata(ctx context.Context, token common.Address) (*entities.Token, error)
}

// TokenService resolves token metadata for display. Lookups go to the chain
// registry, then the cache, then the token contract.
type TokenService struct {
	chainID  int64
	registry *entities.TokenRegistry
	reader   MetadataReader
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewTokenService(chainID int64, registry *entities.TokenRegistry, reader MetadataReader, c cache.Cache, log *zap.Logger) *TokenService {
	if registry == nil {
		registry = entities.NewTokenRegistry()
	}
	return &TokenService{
		chainID:  chainID,
		registry: registry,
		reader:   reader,
		cache:    c,
		cacheTTL: 24 * time.Hour, // token metadata rarely changes
		logger:   logger.OrNop(log),
	}
}

func (s *TokenService) Registry() *entities.TokenRegistry {
	return s.registry
}

// Resolve returns metadata for addr.
func (s *TokenService) Resolve(ctx context.Context, addr common.Address) (*entities.Token, error) {
	if tok, ok := s.registry.GetByAddress(addr); ok {
		return &tok, nil
	}

	key := cache.TokenCacheKey(s.chainID, addr)
	if s.cache != nil {
		cached, err := s.cache.GetToken(ctx, key)
		if err != nil {
			s.logger.Warn("token cache read failed", zap.String("key", key), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	if s.reader == nil {
		return nil, fmt.Errorf("token %s is not registered", addr.Hex())
	}
	tok, err := s.reader.Metadata(ctx, addr)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetToken(ctx, key, tok, s.cacheTTL); err != nil {
			s.logger.Warn("token cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return tok, nil
}

// ResolveMany resolves addrs concurrently, keeping their order.
func (s *TokenService) ResolveMany(ctx context.Context, addrs []common.Address) ([]entities.Token, error) {
	tokens := make([]entities.Token, len(addrs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, addr := range addrs {
		g.Go(func() error {
			tok, err := s.Resolve(ctx, addr)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", addr.Hex(), err)
			}
			tokens[i] = *tok
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Describe is Resolve for display: failures yield an UNKNOWN token.
func (s *TokenService) Describe(ctx context.Context, addr common.Address) entities.Token {
	tok, err := s.Resolve(ctx, addr)
	if err != nil {
		s.logger.Debug("token metadata unavailable", zap.String("token", addr.Hex()), zap.Error(err))
		return entities.UnknownToken(addr)
	}
	return *tok
}

// ParseToken accepts a hex address or a registered symbol.
func (s *TokenService) ParseToken(ref string) (common.Address, error) {
	return s.registry.Resolve(ref)
}
