package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ProductStore persists products together with their price history.
type ProductStore interface {
	Create(ctx context.Context, p Product) error
	Save(ctx context.Context, p Product) error
	GetByID(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, opts ListOpts) ([]Product, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// OrderStore persists checkout orders.
type OrderStore interface {
	Create(ctx context.Context, o Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	// MarkPaid completes a pending order. It returns ErrAlreadyPaid when the
	// order is no longer pending, so only one caller wins.
	MarkPaid(ctx context.Context, id, gatewayPaymentID string) error
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Order, error)
}

// ProfileStore persists progression profiles.
type ProfileStore interface {
	Get(ctx context.Context, id string) (Profile, error)
	Save(ctx context.Context, p Profile) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
