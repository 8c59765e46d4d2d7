package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache keeps rankings in process memory. Entries expire after the TTL
// given to NewLRUCache; the per-call TTL of SetLabels is not honoured.
type LRUCache struct {
	lru *expirable.LRU[string, LabelResult]
}

// NewLRUCache holds at most size rankings for ttl each.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 1
	}
	return &LRUCache{lru: expirable.NewLRU[string, LabelResult](size, nil, ttl)}
}

func (c *LRUCache) GetLabels(_ context.Context, key string) (*LabelResult, error) {
	res, ok := c.lru.Get(key)
	if !ok {
		return nil, nil
	}
	out := LabelResult{Labels: append([]ScoredLabel(nil), res.Labels...)}
	return &out, nil
}

func (c *LRUCache) SetLabels(_ context.Context, key string, result *LabelResult, _ time.Duration) error {
	if result == nil {
		return nil
	}
	c.lru.Add(key, LabelResult{Labels: append([]ScoredLabel(nil), result.Labels...)})
	return nil
}

func (c *LRUCache) Invalidate(_ context.Context) error {
	c.lru.Purge()
	return nil
}

func (c *LRUCache) Close() error {
	c.lru.Purge()
	return nil
}
