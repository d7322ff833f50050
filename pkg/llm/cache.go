package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachingClient wraps a Client with a size- and TTL-bounded cache for
// non-streaming completions. Streams pass through untouched: they are
// interactive and never worth caching.
type CachingClient struct {
	inner Client
	cache *expirable.LRU[string, string]
}

// NewCachingClient creates a caching wrapper. maxSize <= 0 falls back to
// 100 entries, ttl <= 0 to one hour.
func NewCachingClient(inner Client, maxSize int, ttl time.Duration) *CachingClient {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachingClient{
		inner: inner,
		cache: expirable.NewLRU[string, string](maxSize, nil, ttl),
	}
}

// Stream delegates to the wrapped client.
func (c *CachingClient) Stream(ctx context.Context, req Request) (<-chan Delta, error) {
	return c.inner.Stream(ctx, req)
}

// Complete returns a cached completion when an identical request was
// answered within the TTL.
func (c *CachingClient) Complete(ctx context.Context, req Request) (string, error) {
	key := cacheKey(req)
	if key == "" {
		return c.inner.Complete(ctx, req)
	}
	if cached, ok := c.cache.Get(key); ok {
		slog.Debug("LLM cache hit", "key", key[:12])
		return cached, nil
	}

	result, err := c.inner.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, result)
	return result, nil
}

// cacheKey hashes the canonical JSON form of the request. Struct field
// order makes the encoding deterministic for identical requests.
func cacheKey(req Request) string {
	data, err := json.Marshal(req)
	if err != nil {
		// Marshal of plain structs cannot fail; fall back to an uncacheable key.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
