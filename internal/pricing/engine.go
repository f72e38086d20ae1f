// Package pricing implements the product price state machine: purchases push
// the price up, idle time decays it, and overshooting the maximum retail
// price crashes it to half of that maximum. The engine owns no storage; every
// operation mutates the product it is given and reports what happened.
package pricing

import (
	"math"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// Config holds the tunable constants of the price curve.
type Config struct {
	// GracePeriod is how long after a purchase the price is left alone
	// before decay starts.
	GracePeriod time.Duration
	// FloorRatio is the fraction of the base price the product can decay to.
	FloorRatio float64
	// CrashRatio is the fraction of the max retail price a crash sale sets.
	CrashRatio float64
}

// DefaultConfig returns the standard one-hour grace period and 50% floor and
// crash ratios.
func DefaultConfig() Config {
	return Config{
		GracePeriod: time.Hour,
		FloorRatio:  0.5,
		CrashRatio:  0.5,
	}
}

// Result describes a single transition.
type Result struct {
	Changed  bool
	Event    domain.PriceEvent
	Previous float64
	Current  float64
}

// Engine applies price events to products.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine creates an Engine. A nil clock defaults to time.Now in UTC.
func NewEngine(cfg Config, now func() time.Time) *Engine {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = time.Hour
	}
	if cfg.FloorRatio <= 0 {
		cfg.FloorRatio = 0.5
	}
	if cfg.CrashRatio <= 0 {
		cfg.CrashRatio = 0.5
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{cfg: cfg, now: now}
}

func (e *Engine) floor(p *domain.Product) float64 { return p.BasePrice * e.cfg.FloorRatio }
func (e *Engine) crash(p *domain.Product) float64 { return p.MaxRetailPrice * e.cfg.CrashRatio }

// OnPurchase raises the price by the product's increment percentage. When the
// raised price reaches the max retail price the product enters a crash sale
// instead.
func (e *Engine) OnPurchase(p *domain.Product) Result {
	now := e.now()
	prev := p.CurrentPrice
	next := p.CurrentPrice * (1 + p.PriceIncrementPercent/100)

	event := domain.PriceEventPurchase
	if next >= p.MaxRetailPrice {
		p.CrashSaleActive = true
		next = e.crash(p)
		event = domain.PriceEventCrashSale
	}
	p.CurrentPrice = next
	p.DecayBase = next
	p.PurchaseCount++
	p.LastPurchaseTime = &now
	p.PriceHistory = append(p.PriceHistory, domain.PricePoint{
		Price:     next,
		Timestamp: now,
		Event:     event,
	})
	p.UpdatedAt = now

	return Result{Changed: true, Event: event, Previous: prev, Current: next}
}

// OnDecayCheck lowers the price according to the time elapsed since the last
// purchase. The decrement is subtracted from the decay base, the price set
// by the last purchase or admin action, so the result depends only on now:
// calling it again with the same now changes nothing. LastPurchaseTime is
// never updated here, which lets it be called lazily when the product is read.
func (e *Engine) OnDecayCheck(p *domain.Product, now time.Time) Result {
	res := Result{Previous: p.CurrentPrice, Current: p.CurrentPrice}
	if p.LastPurchaseTime == nil {
		return res
	}

	hours := now.Sub(*p.LastPurchaseTime).Hours()
	grace := e.cfg.GracePeriod.Hours()
	if hours <= grace {
		return res
	}

	if p.DecayBase <= 0 {
		p.DecayBase = decayBaseOf(p)
	}
	decrement := p.PriceDecrementRate * (hours - grace)
	next := math.Max(p.DecayBase-decrement, e.floor(p))
	if next >= p.CurrentPrice {
		return res
	}

	p.CurrentPrice = next
	p.PriceHistory = append(p.PriceHistory, domain.PricePoint{
		Price:     next,
		Timestamp: now,
		Event:     domain.PriceEventDecay,
	})
	p.UpdatedAt = now

	res.Changed = true
	res.Event = domain.PriceEventDecay
	res.Current = next
	return res
}

// SetManualCrashSale starts or ends an administrative crash sale. Purchase
// count and last purchase time are left untouched.
func (e *Engine) SetManualCrashSale(p *domain.Product, activate bool) Result {
	now := e.now()
	prev := p.CurrentPrice

	event := domain.PriceEventCrashSaleEnded
	price := p.BasePrice
	if activate {
		event = domain.PriceEventManualCrashSale
		price = e.crash(p)
	}

	p.CurrentPrice = price
	p.DecayBase = price
	p.CrashSaleActive = activate
	p.PriceHistory = append(p.PriceHistory, domain.PricePoint{
		Price:     price,
		Timestamp: now,
		Event:     event,
	})
	p.UpdatedAt = now

	return Result{Changed: true, Event: event, Previous: prev, Current: price}
}

// Reprice resets the mutable price state after the price bounds were edited.
// History is kept; no history record is written.
func (e *Engine) Reprice(p *domain.Product) {
	p.CurrentPrice = p.BasePrice
	p.DecayBase = p.BasePrice
	p.CrashSaleActive = false
	p.PurchaseCount = 0
	p.UpdatedAt = e.now()
}

// InBounds reports whether the current price lies within the product's floor
// and max retail price.
func (e *Engine) InBounds(p *domain.Product) bool {
	return p.CurrentPrice >= e.floor(p) && p.CurrentPrice <= p.MaxRetailPrice
}

// decayBaseOf recovers the decay base of products stored without one: the
// newest history price not written by decay, else the current price.
func decayBaseOf(p *domain.Product) float64 {
	for i := len(p.PriceHistory) - 1; i >= 0; i-- {
		if p.PriceHistory[i].Event != domain.PriceEventDecay {
			return p.PriceHistory[i].Price
		}
	}
	return p.CurrentPrice
}
