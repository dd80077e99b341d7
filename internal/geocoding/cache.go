package geocoding

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
)

// Cache stores provider answers. Forward entries are keyed by provider name
// and normalized query, reverse entries by provider name and Point.CacheKey.
// A miss is (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	GetForward(ctx context.Context, key string) ([]suggest.Candidate, bool, error)
	PutForward(ctx context.Context, key string, candidates []suggest.Candidate, ttl time.Duration) error
	GetReverse(ctx context.Context, key string) (*ReverseResult, bool, error)
	PutReverse(ctx context.Context, key string, result ReverseResult, ttl time.Duration) error
}

// NormalizeQuery lowercases, trims and collapses whitespace so equivalent
// queries share a cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryCache is an in-process Cache used when no shared backend is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	now     func() time.Time
	forward map[string]memoryEntry[[]suggest.Candidate]
	reverse map[string]memoryEntry[ReverseResult]
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		now:     time.Now,
		forward: make(map[string]memoryEntry[[]suggest.Candidate]),
		reverse: make(map[string]memoryEntry[ReverseResult]),
	}
}

func (c *MemoryCache) GetForward(_ context.Context, key string) ([]suggest.Candidate, bool, error) {
	c.mu.RLock()
	e, ok := c.forward[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) PutForward(_ context.Context, key string, candidates []suggest.Candidate, ttl time.Duration) error {
	c.mu.Lock()
	c.forward[key] = memoryEntry[[]suggest.Candidate]{value: candidates, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) GetReverse(_ context.Context, key string) (*ReverseResult, bool, error) {
	c.mu.RLock()
	e, ok := c.reverse[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	result := e.value
	return &result, true, nil
}

func (c *MemoryCache) PutReverse(_ context.Context, key string, result ReverseResult, ttl time.Duration) error {
	c.mu.Lock()
	c.reverse[key] = memoryEntry[ReverseResult]{value: result, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// DeleteExpired drops expired entries and reports how many were removed.
func (c *MemoryCache) DeleteExpired(_ context.Context) (int64, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	for k, e := range c.forward {
		if !now.Before(e.expiresAt) {
			delete(c.forward, k)
			n++
		}
	}
	for k, e := range c.reverse {
		if !now.Before(e.expiresAt) {
			delete(c.reverse, k)
			n++
		}
	}
	return n, nil
}
