package domain

import (
	"context"
	"time"
)

// PriceQuote is the cached view of a product's latest price.
type PriceQuote struct {
	ProductID string    `json:"product_id"`
	Price     float64   `json:"price"`
	CrashSale bool      `json:"crash_sale_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceCache provides fast access to the latest product prices.
type PriceCache interface {
	SetQuote(ctx context.Context, q PriceQuote) error
	GetQuote(ctx context.Context, productID string) (PriceQuote, error)
	GetQuotes(ctx context.Context, productIDs []string) (map[string]PriceQuote, error)
	Invalidate(ctx context.Context, productID string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides per-key mutual exclusion. Acquire fails fast with
// ErrLockHeld when another holder owns the key.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub messaging.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Channels published on the SignalBus.
const (
	ChannelPrices  = "prices"
	ChannelTracker = "tracker"
)
