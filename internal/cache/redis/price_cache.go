package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// PriceCache implements domain.PriceCache with one hash per product at
// "{prefix}price:{id}" holding the fields price, crash and ts (unix nanos).
type PriceCache struct {
	c   *Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache. A positive ttl expires quotes that are
// not refreshed.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{c: c, ttl: ttl}
}

// SetQuote stores the latest quote for a product.
func (pc *PriceCache) SetQuote(ctx context.Context, q domain.PriceQuote) error {
	key := pc.c.key("price", q.ProductID)
	fields := map[string]any{
		"price": strconv.FormatFloat(q.Price, 'f', -1, 64),
		"crash": strconv.FormatBool(q.CrashSale),
		"ts":    strconv.FormatInt(q.UpdatedAt.UnixNano(), 10),
	}

	pipe := pc.c.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if pc.ttl > 0 {
		pipe.Expire(ctx, key, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", q.ProductID, err)
	}
	return nil
}

// GetQuote returns the cached quote or domain.ErrNotFound.
func (pc *PriceCache) GetQuote(ctx context.Context, productID string) (domain.PriceQuote, error) {
	vals, err := pc.c.rdb.HGetAll(ctx, pc.c.key("price", productID)).Result()
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: get quote %s: %w", productID, err)
	}
	q, err := parseQuote(productID, vals)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	return q, nil
}

// GetQuotes fetches several quotes in one pipeline. Products without a
// usable cache entry are left out of the result.
func (pc *PriceCache) GetQuotes(ctx context.Context, productIDs []string) (map[string]domain.PriceQuote, error) {
	out := make(map[string]domain.PriceQuote, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	pipe := pc.c.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(productIDs))
	for _, id := range productIDs {
		cmds[id] = pipe.HGetAll(ctx, pc.c.key("price", id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get quotes: %w", err)
	}

	for id, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil {
			continue
		}
		if q, err := parseQuote(id, vals); err == nil {
			out[id] = q
		}
	}
	return out, nil
}

// Invalidate drops the cached quote of a product.
func (pc *PriceCache) Invalidate(ctx context.Context, productID string) error {
	if err := pc.c.rdb.Del(ctx, pc.c.key("price", productID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate quote %s: %w", productID, err)
	}
	return nil
}

func parseQuote(id string, vals map[string]string) (domain.PriceQuote, error) {
	priceStr, ok := vals["price"]
	if !ok {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: parse price %s: %w", id, err)
	}
	crash, _ := strconv.ParseBool(vals["crash"])

	var ts time.Time
	if s, ok := vals["ts"]; ok {
		nanos, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.PriceQuote{}, fmt.Errorf("redis: parse ts %s: %w", id, err)
		}
		ts = time.Unix(0, nanos).UTC()
	}

	return domain.PriceQuote{ProductID: id, Price: price, CrashSale: crash, UpdatedAt: ts}, nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
