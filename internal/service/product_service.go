package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/brandit/internal/domain"
	"github.com/alanyoungcy/brandit/internal/notify"
	"github.com/alanyoungcy/brandit/internal/pricing"
)

const statsPageSize = 500

// ProductService owns the product lifecycle. Every write to a product runs
// under that product's lock, so purchases, decay and admin edits of one
// product never interleave.
type ProductService struct {
	products domain.ProductStore
	engine   *pricing.Engine
	locks    domain.LockManager
	cache    domain.PriceCache
	bus      domain.SignalBus
	audit    domain.AuditStore
	notifier Notifier
	lockCfg  LockConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewProductService creates a ProductService. cache, bus, audit and notifier
// may be nil.
func NewProductService(
	products domain.ProductStore,
	engine *pricing.Engine,
	locks domain.LockManager,
	cache domain.PriceCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier Notifier,
	lockCfg LockConfig,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		products: products,
		engine:   engine,
		locks:    locks,
		cache:    cache,
		bus:      bus,
		audit:    audit,
		notifier: notifier,
		lockCfg:  lockCfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With(slog.String("component", "product_service")),
	}
}

// WithClock replaces the clock used for decay checks and timestamps.
func (s *ProductService) WithClock(now func() time.Time) *ProductService {
	s.now = now
	return s
}

// Create lists a new product at its base price.
func (s *ProductService) Create(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	now := s.now()
	p := domain.Product{
		ID:                    uuid.NewString(),
		Name:                  strings.TrimSpace(in.Name),
		Description:           in.Description,
		Category:              in.Category,
		ImageURL:              in.ImageURL,
		BasePrice:             in.BasePrice,
		MaxRetailPrice:        in.MaxRetailPrice,
		PriceIncrementPercent: domain.DefaultPriceIncrementPercent,
		PriceDecrementRate:    domain.DefaultPriceDecrementRate,
		CurrentPrice:          in.BasePrice,
		PriceHistory:          []domain.PricePoint{},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if in.PriceIncrementPercent != nil {
		p.PriceIncrementPercent = *in.PriceIncrementPercent
	}
	if in.PriceDecrementRate != nil {
		p.PriceDecrementRate = *in.PriceDecrementRate
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}

	if err := s.products.Create(ctx, p); err != nil {
		return domain.Product{}, fmt.Errorf("product_service: create %s: %w", p.ID, err)
	}
	s.refreshCache(ctx, p)
	audit(ctx, s.audit, s.logger, "product.created", map[string]any{
		"product_id": p.ID,
		"name":       p.Name,
		"base_price": p.BasePrice,
	})
	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("name", p.Name),
	)
	return p, nil
}

// Get returns the product after applying any pending decay. A decayed price
// is persisted before it is returned.
func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product_service: get %s: %w", id, err)
	}
	peek := p
	if !s.engine.OnDecayCheck(&peek, s.now()).Changed {
		return p, nil
	}
	return s.decay(ctx, id)
}

// List returns a page of products with decay applied to each.
func (s *ProductService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Product, error) {
	list, err := s.products.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("product_service: list: %w", err)
	}
	now := s.now()
	for i := range list {
		peek := list[i]
		if !s.engine.OnDecayCheck(&peek, now).Changed {
			continue
		}
		p, err := s.decay(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i] = p
	}
	return list, nil
}

func (s *ProductService) decay(ctx context.Context, id string) (domain.Product, error) {
	return s.mutate(ctx, id, func(p *domain.Product) (pricing.Result, error) {
		return s.engine.OnDecayCheck(p, s.now()), nil
	})
}

// Update applies a partial edit. Changing base or max price resets the price
// state through the engine's reprice rule.
func (s *ProductService) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	p, err := s.mutate(ctx, id, func(p *domain.Product) (pricing.Result, error) {
		prev := p.CurrentPrice
		applyPatch(p, patch)
		if err := p.Validate(); err != nil {
			return pricing.Result{}, err
		}
		if patch.Reprices() {
			s.engine.Reprice(p)
		}
		p.UpdatedAt = s.now()
		return pricing.Result{Changed: true, Previous: prev, Current: p.CurrentPrice}, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	audit(ctx, s.audit, s.logger, "product.updated", map[string]any{
		"product_id": id,
		"repriced":   patch.Reprices(),
	})
	return p, nil
}

func applyPatch(p *domain.Product, patch domain.ProductPatch) {
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	if patch.BasePrice != nil {
		p.BasePrice = *patch.BasePrice
	}
	if patch.MaxRetailPrice != nil {
		p.MaxRetailPrice = *patch.MaxRetailPrice
	}
	if patch.PriceIncrementPercent != nil {
		p.PriceIncrementPercent = *patch.PriceIncrementPercent
	}
	if patch.PriceDecrementRate != nil {
		p.PriceDecrementRate = *patch.PriceDecrementRate
	}
}

// Delete removes a product and drops its cached quote.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	unlock, err := acquire(ctx, s.locks, s.lockCfg, productLockKey(id))
	if err != nil {
		return fmt.Errorf("product_service: delete %s: %w", id, err)
	}
	defer unlock()

	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("product_service: delete %s: %w", id, err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "invalidate quote failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	publish(ctx, s.bus, s.logger, domain.ChannelPrices, map[string]any{
		"event":      "product_deleted",
		"product_id": id,
		"timestamp":  s.now().Format(time.RFC3339Nano),
	})
	audit(ctx, s.audit, s.logger, "product.deleted", map[string]any{"product_id": id})
	return nil
}

// ApplyPurchase records one purchase of the product and returns its new
// state. It implements queue.PurchaseApplier.
func (s *ProductService) ApplyPurchase(ctx context.Context, id string) (domain.Product, error) {
	var res pricing.Result
	p, err := s.mutate(ctx, id, func(p *domain.Product) (pricing.Result, error) {
		res = s.engine.OnPurchase(p)
		return res, nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	if res.Event == domain.PriceEventCrashSale {
		s.logger.InfoContext(ctx, "crash sale triggered",
			slog.String("product_id", p.ID),
			slog.Float64("previous", res.Previous),
			slog.Float64("price", p.CurrentPrice),
		)
		alert(ctx, s.notifier, s.logger, notify.Message{
			Event: notify.EventCrashSale,
			Title: "Crash sale: " + p.Name,
			Body:  fmt.Sprintf("%s hit its max retail price and crashed to %.2f.", p.Name, p.CurrentPrice),
			Fields: map[string]string{
				"product_id": p.ID,
				"previous":   fmt.Sprintf("%.2f", res.Previous),
				"price":      fmt.Sprintf("%.2f", p.CurrentPrice),
			},
		})
	}
	return p, nil
}

// SetCrashSale starts or ends a manual crash sale on every listed product.
// Unknown ids are skipped and reported in the result.
func (s *ProductService) SetCrashSale(ctx context.Context, ids []string, activate bool) (domain.CrashSaleResult, error) {
	if len(ids) == 0 {
		return domain.CrashSaleResult{}, fmt.Errorf("%w: no products selected", domain.ErrInvalidProduct)
	}

	out := domain.CrashSaleResult{Updated: []string{}, Missing: []string{}}
	for _, id := range ids {
		p, err := s.mutate(ctx, id, func(p *domain.Product) (pricing.Result, error) {
			return s.engine.SetManualCrashSale(p, activate), nil
		})
		switch {
		case err == nil:
			out.Updated = append(out.Updated, id)
			if activate {
				alert(ctx, s.notifier, s.logger, notify.Message{
					Event:  notify.EventManualCrashSale,
					Title:  "Manual crash sale: " + p.Name,
					Body:   fmt.Sprintf("%s is on crash sale at %.2f.", p.Name, p.CurrentPrice),
					Fields: map[string]string{"product_id": p.ID},
				})
			}
		case isNotFound(err):
			out.Missing = append(out.Missing, id)
		default:
			return out, err
		}
	}

	audit(ctx, s.audit, s.logger, "crash_sale.manual", map[string]any{
		"activate": activate,
		"updated":  out.Updated,
		"missing":  out.Missing,
	})
	return out, nil
}

// History returns the price history of a product, oldest first.
func (s *ProductService) History(ctx context.Context, id string) ([]domain.PricePoint, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.PriceHistory, nil
}

// MarketStats summarises every product. The average price change is the
// mean of (current-base)/base in percent.
func (s *ProductService) MarketStats(ctx context.Context) (domain.MarketStats, error) {
	var (
		stats     domain.MarketStats
		changeSum float64
	)
	for offset := 0; ; offset += statsPageSize {
		page, err := s.products.List(ctx, domain.ListOpts{Limit: statsPageSize, Offset: offset})
		if err != nil {
			return domain.MarketStats{}, fmt.Errorf("product_service: market stats: %w", err)
		}
		for _, p := range page {
			stats.TotalProducts++
			if p.CrashSaleActive {
				stats.CrashSalesActive++
			}
			stats.TotalVolume += p.PurchaseCount
			if p.BasePrice > 0 {
				changeSum += (p.CurrentPrice - p.BasePrice) / p.BasePrice * 100
			}
		}
		if len(page) < statsPageSize {
			break
		}
	}
	if stats.TotalProducts > 0 {
		stats.AvgPriceChangePct = changeSum / float64(stats.TotalProducts)
	}
	return stats, nil
}

// mutate runs fn on the product under its lock and persists, caches and
// publishes the result when fn reports a change.
func (s *ProductService) mutate(ctx context.Context, id string, fn func(*domain.Product) (pricing.Result, error)) (domain.Product, error) {
	unlock, err := acquire(ctx, s.locks, s.lockCfg, productLockKey(id))
	if err != nil {
		return domain.Product{}, fmt.Errorf("product_service: %s: %w", id, err)
	}
	defer unlock()

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product_service: load %s: %w", id, err)
	}
	res, err := fn(&p)
	if err != nil {
		return domain.Product{}, err
	}
	if !res.Changed {
		return p, nil
	}
	if err := s.products.Save(ctx, p); err != nil {
		return domain.Product{}, fmt.Errorf("product_service: save %s: %w", id, err)
	}

	s.refreshCache(ctx, p)
	publish(ctx, s.bus, s.logger, domain.ChannelPrices, priceUpdate{
		Event:     "price_update",
		ProductID: p.ID,
		Price:     p.CurrentPrice,
		Previous:  res.Previous,
		CrashSale: p.CrashSaleActive,
		Cause:     res.Event,
		Timestamp: p.UpdatedAt,
	})
	return p, nil
}

func productLockKey(id string) string { return "product:" + id }
