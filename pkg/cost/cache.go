package cost

import (
	"sync"
	"time"
)

// priceCache holds pricing responses for a bounded TTL
type priceCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]*cacheEntry
}

type cacheEntry struct {
	pricing   *pricingResponse
	expiresAt time.Time
}

func newPriceCache(ttl time.Duration) *priceCache {
	return &priceCache{
		ttl:  ttl,
		data: make(map[string]*cacheEntry),
	}
}

func (c *priceCache) get(key string) *pricingResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.pricing
}

func (c *priceCache) set(key string, pricing *pricingResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		pricing:   pricing,
		expiresAt: time.Now().Add(c.ttl),
	}
}
