package domain

import (
	"fmt"
	"time"
)

// PriceEvent labels a single entry of a product's price history.
type PriceEvent string

const (
	PriceEventPurchase        PriceEvent = "purchase"
	PriceEventCrashSale       PriceEvent = "crash_sale"
	PriceEventDecay           PriceEvent = "decay"
	PriceEventManualCrashSale PriceEvent = "manual_crash_sale"
	PriceEventCrashSaleEnded  PriceEvent = "crash_sale_ended"
)

// Default pricing parameters applied when a product is created without them.
const (
	DefaultPriceIncrementPercent = 5.0
	DefaultPriceDecrementRate    = 0.5
)

// PricePoint is one append-only record in a product's price history.
type PricePoint struct {
	Price     float64    `json:"price"`
	Timestamp time.Time  `json:"timestamp"`
	Event     PriceEvent `json:"event"`
}

// Product is a listed item whose price moves with purchases and time.
type Product struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	Description           string       `json:"description"`
	Category              string       `json:"category"`
	ImageURL              string       `json:"image_url"`
	BasePrice             float64      `json:"base_price"`
	MaxRetailPrice        float64      `json:"max_retail_price"`
	PriceIncrementPercent float64      `json:"price_increment_percent"`
	PriceDecrementRate    float64      `json:"price_decrement_rate"` // currency units per hour
	CurrentPrice          float64      `json:"current_price"`
	CrashSaleActive       bool         `json:"crash_sale_active"`
	PurchaseCount         int64        `json:"purchase_count"`
	LastPurchaseTime      *time.Time   `json:"last_purchase_time,omitempty"`
	DecayBase             float64      `json:"decay_base"` // price decay is measured from
	PriceHistory          []PricePoint `json:"price_history"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// FloorPrice is the lowest price the product may ever reach.
func (p *Product) FloorPrice() float64 {
	return p.BasePrice * 0.5
}

// CrashPrice is the price a crash sale resets the product to.
func (p *Product) CrashPrice() float64 {
	return p.MaxRetailPrice * 0.5
}

// Validate checks the static pricing parameters of a product.
func (p *Product) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name must not be empty", ErrInvalidProduct)
	case p.BasePrice <= 0:
		return fmt.Errorf("%w: base_price must be > 0", ErrInvalidProduct)
	case p.MaxRetailPrice < p.BasePrice:
		return fmt.Errorf("%w: max_retail_price must be >= base_price", ErrInvalidProduct)
	case p.PriceIncrementPercent < 0:
		return fmt.Errorf("%w: price_increment_percent must be >= 0", ErrInvalidProduct)
	case p.PriceDecrementRate < 0:
		return fmt.Errorf("%w: price_decrement_rate must be >= 0", ErrInvalidProduct)
	}
	return nil
}

// ProductInput is the payload used to list a new product.
type ProductInput struct {
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	Category              string   `json:"category"`
	ImageURL              string   `json:"image_url"`
	BasePrice             float64  `json:"base_price"`
	MaxRetailPrice        float64  `json:"max_retail_price"`
	PriceIncrementPercent *float64 `json:"price_increment_percent,omitempty"`
	PriceDecrementRate    *float64 `json:"price_decrement_rate,omitempty"`
}

// ProductPatch carries a partial update. Nil fields are left unchanged.
type ProductPatch struct {
	Name                  *string  `json:"name,omitempty"`
	Description           *string  `json:"description,omitempty"`
	Category              *string  `json:"category,omitempty"`
	ImageURL              *string  `json:"image_url,omitempty"`
	BasePrice             *float64 `json:"base_price,omitempty"`
	MaxRetailPrice        *float64 `json:"max_retail_price,omitempty"`
	PriceIncrementPercent *float64 `json:"price_increment_percent,omitempty"`
	PriceDecrementRate    *float64 `json:"price_decrement_rate,omitempty"`
}

// Reprices reports whether applying the patch changes the price bounds.
func (pp ProductPatch) Reprices() bool {
	return pp.BasePrice != nil || pp.MaxRetailPrice != nil
}

// MarketStats summarises the whole catalogue.
type MarketStats struct {
	TotalProducts     int     `json:"total_products"`
	CrashSalesActive  int     `json:"crash_sales_active"`
	TotalVolume       int64   `json:"total_volume"`
	AvgPriceChangePct float64 `json:"avg_price_change"`
}

// CrashSaleResult reports the outcome of a bulk crash-sale request.
type CrashSaleResult struct {
	Updated []string `json:"updated"`
	Missing []string `json:"missing"`
}
