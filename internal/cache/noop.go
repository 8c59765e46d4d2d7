package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used when caching is disabled - all operations succeed
// but no actual caching occurs (always cache miss).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetLabels always returns nil (cache miss)
func (c *NoOpCache) GetLabels(ctx context.Context, key string) (*LabelResult, error) {
	return nil, nil
}

// SetLabels does nothing and always succeeds
func (c *NoOpCache) SetLabels(ctx context.Context, key string, result *LabelResult, ttl time.Duration) error {
	return nil
}

// Invalidate does nothing and always succeeds
func (c *NoOpCache) Invalidate(ctx context.Context) error {
	return nil
}

// Close does nothing and always succeeds
func (c *NoOpCache) Close() error {
	return nil
}
