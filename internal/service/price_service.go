package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// priceUpdate is published on the prices channel after every change.
type priceUpdate struct {
	Event     string            `json:"event"`
	ProductID string            `json:"product_id"`
	Price     float64           `json:"price"`
	Previous  float64           `json:"previous"`
	CrashSale bool              `json:"crash_sale_active"`
	Cause     domain.PriceEvent `json:"cause,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Quote returns the cached price of a product, falling back to the store on
// a cache miss and filling the cache from it.
func (s *ProductService) Quote(ctx context.Context, id string) (domain.PriceQuote, error) {
	if s.cache != nil {
		q, err := s.cache.GetQuote(ctx, id)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "quote cache read failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	s.refreshCache(ctx, p)
	return quoteOf(p), nil
}

// Quotes returns quotes for many products. Unknown ids are left out.
func (s *ProductService) Quotes(ctx context.Context, ids []string) (map[string]domain.PriceQuote, error) {
	out := make(map[string]domain.PriceQuote, len(ids))
	if s.cache != nil {
		cached, err := s.cache.GetQuotes(ctx, ids)
		if err != nil {
			s.logger.WarnContext(ctx, "quote cache batch read failed", slog.String("error", err.Error()))
		}
		for id, q := range cached {
			out[id] = q
		}
	}
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		p, err := s.Get(ctx, id)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("product_service: quotes: %w", err)
		}
		s.refreshCache(ctx, p)
		out[id] = quoteOf(p)
	}
	return out, nil
}

func (s *ProductService) refreshCache(ctx context.Context, p domain.Product) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetQuote(ctx, quoteOf(p)); err != nil {
		s.logger.WarnContext(ctx, "quote cache write failed",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

func quoteOf(p domain.Product) domain.PriceQuote {
	return domain.PriceQuote{
		ProductID: p.ID,
		Price:     p.CurrentPrice,
		CrashSale: p.CrashSaleActive,
		UpdatedAt: p.UpdatedAt,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
