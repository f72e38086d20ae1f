package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// ProductStore implements domain.ProductStore.
type ProductStore struct {
	mu sync.RWMutex
	m  map[string]domain.Product
}

// NewProductStore creates an empty ProductStore.
func NewProductStore() *ProductStore {
	return &ProductStore{m: make(map[string]domain.Product)}
}

func cloneProduct(p domain.Product) domain.Product {
	p.PriceHistory = slices.Clone(p.PriceHistory)
	if p.LastPurchaseTime != nil {
		t := *p.LastPurchaseTime
		p.LastPurchaseTime = &t
	}
	return p
}

// Create inserts a new product.
func (s *ProductStore) Create(_ context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[p.ID]; ok {
		return fmt.Errorf("memory: create product %s: %w", p.ID, domain.ErrAlreadyExists)
	}
	s.m[p.ID] = cloneProduct(p)
	return nil
}

// Save replaces an existing product.
func (s *ProductStore) Save(_ context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[p.ID]; !ok {
		return fmt.Errorf("memory: save product %s: %w", p.ID, domain.ErrNotFound)
	}
	s.m[p.ID] = cloneProduct(p)
	return nil
}

// GetByID returns a product or domain.ErrNotFound.
func (s *ProductStore) GetByID(_ context.Context, id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return cloneProduct(p), nil
}

// List returns products ordered by creation time, oldest first.
func (s *ProductStore) List(_ context.Context, opts domain.ListOpts) ([]domain.Product, error) {
	s.mu.RLock()
	out := make([]domain.Product, 0, len(s.m))
	for _, p := range s.m {
		if opts.Since != nil && p.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && p.CreatedAt.After(*opts.Until) {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, opts), nil
}

// Delete removes a product.
func (s *ProductStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.m, id)
	return nil
}

// Count returns the number of stored products.
func (s *ProductStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.m)), nil
}

var _ domain.ProductStore = (*ProductStore)(nil)
