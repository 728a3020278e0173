package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

// Cache stores resolved token metadata. A miss is (nil, nil).
type Cache interface {
	GetToken(ctx context.Context, key string) (*entities.Token, error)
	SetToken(ctx context.Context, key string, token *entities.Token, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisCache implements Cache using Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and checks the connection with a ping.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetToken retrieves cached token metadata
func (c *RedisCache) GetToken(ctx context.Context, key string) (*entities.Token, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var token entities.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}

	return &token, nil
}

// SetToken caches token metadata with TTL
func (c *RedisCache) SetToken(ctx context.Context, key string, token *entities.Token, ttl time.Duration) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes a key from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// TokenCacheKey generates a cache key for token metadata on a chain
func TokenCacheKey(chainID int64, token common.Address) string {
	return fmt.Sprintf("token:%d:%s", chainID, strings.ToLower(token.Hex()))
}
