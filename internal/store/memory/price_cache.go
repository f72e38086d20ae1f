package memory

import (
	"context"
	"sync"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// PriceCache implements domain.PriceCache with a map.
type PriceCache struct {
	mu sync.RWMutex
	m  map[string]domain.PriceQuote
}

// NewPriceCache creates an empty PriceCache.
func NewPriceCache() *PriceCache {
	return &PriceCache{m: make(map[string]domain.PriceQuote)}
}

// SetQuote stores a quote.
func (c *PriceCache) SetQuote(_ context.Context, q domain.PriceQuote) error {
	c.mu.Lock()
	c.m[q.ProductID] = q
	c.mu.Unlock()
	return nil
}

// GetQuote returns the cached quote or domain.ErrNotFound.
func (c *PriceCache) GetQuote(_ context.Context, productID string) (domain.PriceQuote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.m[productID]
	if !ok {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	return q, nil
}

// GetQuotes returns the cached quotes that exist among productIDs.
func (c *PriceCache) GetQuotes(_ context.Context, productIDs []string) (map[string]domain.PriceQuote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]domain.PriceQuote, len(productIDs))
	for _, id := range productIDs {
		if q, ok := c.m[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

// Invalidate drops a cached quote.
func (c *PriceCache) Invalidate(_ context.Context, productID string) error {
	c.mu.Lock()
	delete(c.m, productID)
	c.mu.Unlock()
	return nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
