package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Cache provides label ranking result caching
type Cache interface {
	// GetLabels retrieves a cached ranking by key
	// Returns nil if not found
	GetLabels(ctx context.Context, key string) (*LabelResult, error)

	// SetLabels stores a ranking with TTL
	SetLabels(ctx context.Context, key string, result *LabelResult, ttl time.Duration) error

	// Invalidate drops every cached ranking, e.g. after labels are re-extracted
	Invalidate(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// LabelResult represents a cached label ranking
type LabelResult struct {
	Labels []ScoredLabel `json:"labels"`
}

// ScoredLabel is one ranked label with its cosine similarity
type ScoredLabel struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// Key derives a cache key from the query text and requested count.
func Key(text string, topN int) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(topN)))
	return hex.EncodeToString(h.Sum(nil))
}
