package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// OrderStore implements domain.OrderStore.
type OrderStore struct {
	mu  sync.RWMutex
	m   map[string]domain.Order
	now func() time.Time
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		m:   make(map[string]domain.Order),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// Create inserts a new order.
func (s *OrderStore) Create(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[o.ID]; ok {
		return fmt.Errorf("memory: create order %s: %w", o.ID, domain.ErrAlreadyExists)
	}
	s.m[o.ID] = cloneOrder(o)
	return nil
}

// GetByID returns an order or domain.ErrNotFound.
func (s *OrderStore) GetByID(_ context.Context, id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.m[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return cloneOrder(o), nil
}

// MarkPaid records the gateway payment and completes a pending order.
func (s *OrderStore) MarkPaid(_ context.Context, id, gatewayPaymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.PaymentStatus == domain.PaymentStatusCompleted {
		return domain.ErrAlreadyPaid
	}
	o.GatewayPaymentID = gatewayPaymentID
	o.PaymentStatus = domain.PaymentStatusCompleted
	o.UpdatedAt = s.now()
	s.m[id] = o
	return nil
}

// ListByUser returns a user's orders, newest first.
func (s *OrderStore) ListByUser(_ context.Context, userID string, opts domain.ListOpts) ([]domain.Order, error) {
	s.mu.RLock()
	var out []domain.Order
	for _, o := range s.m {
		if o.UserID != userID {
			continue
		}
		if opts.Since != nil && o.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && o.CreatedAt.After(*opts.Until) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, opts), nil
}

var _ domain.OrderStore = (*OrderStore)(nil)
