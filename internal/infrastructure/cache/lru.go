package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

// LRUCache implements Cache in process with a bounded size and per-entry TTL.
type LRUCache struct {
	cache *lru.Cache
	now   func() time.Time
}

type cachedToken struct {
	token     entities.Token
	expiresAt time.Time
}

// NewLRUCache creates an in-process cache holding at most size entries.
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c, now: time.Now}, nil
}

func (c *LRUCache) GetToken(ctx context.Context, key string) (*entities.Token, error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, nil
	}
	cached := v.(*cachedToken)
	if !cached.expiresAt.IsZero() && !c.now().Before(cached.expiresAt) {
		c.cache.Remove(key)
		return nil, nil
	}
	token := cached.token
	return &token, nil
}

// SetToken stores a copy of token. A non-positive ttl never expires.
func (c *LRUCache) SetToken(ctx context.Context, key string, token *entities.Token, ttl time.Duration) error {
	entry := &cachedToken{token: *token}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.cache.Add(key, entry)
	return nil
}

func (c *LRUCache) Delete(ctx context.Context, key string) error {
	c.cache.Remove(key)
	return nil
}

func (c *LRUCache) Len() int {
	return c.cache.Len()
}
