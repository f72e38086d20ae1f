package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/brandit/internal/domain"
	"github.com/alanyoungcy/brandit/internal/queue"
)

// PaymentVerifier checks a gateway signature.
type PaymentVerifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, signature string) bool
	Enabled() bool
}

// PurchaseQueue accepts deferred purchases without blocking.
type PurchaseQueue interface {
	Submit(job queue.PurchaseJob) bool
}

// ProductReader is the part of ProductService checkout needs.
type ProductReader interface {
	Get(ctx context.Context, id string) (domain.Product, error)
	ApplyPurchase(ctx context.Context, id string) (domain.Product, error)
}

// OrderService runs checkout: it prices orders from the current product
// state and, once payment is verified, hands the price updates to the
// purchase queue.
type OrderService struct {
	orders   domain.OrderStore
	products ProductReader
	verifier PaymentVerifier
	queue    PurchaseQueue
	audit    domain.AuditStore
	currency string
	now      func() time.Time
	logger   *slog.Logger

	// Purchases the queue refused run in the background, bounded by
	// fallbackTimeout, and are tracked so shutdown can wait for them.
	fallbackTimeout time.Duration
	fallback        sync.WaitGroup
}

const defaultFallbackTimeout = 10 * time.Second

// NewOrderService creates an OrderService. An empty currency defaults to INR.
func NewOrderService(
	orders domain.OrderStore,
	products ProductReader,
	verifier PaymentVerifier,
	q PurchaseQueue,
	audit domain.AuditStore,
	currency string,
	logger *slog.Logger,
) *OrderService {
	if currency == "" {
		currency = "INR"
	}
	return &OrderService{
		orders:   orders,
		products: products,
		verifier: verifier,
		queue:    q,
		audit:    audit,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With(slog.String("component", "order_service")),

		fallbackTimeout: defaultFallbackTimeout,
	}
}

// WithClock replaces the clock used for order timestamps.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

// CreateOrder prices every line at the product's current price and stores a
// pending order.
func (s *OrderService) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return domain.Order{}, fmt.Errorf("%w: user_id is required", domain.ErrInvalidOrder)
	}
	if len(req.Items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: order has no products", domain.ErrInvalidOrder)
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	var total float64
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: quantity for %s must be > 0", domain.ErrInvalidOrder, it.ProductID)
		}
		p, err := s.products.Get(ctx, it.ProductID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order_service: price %s: %w", it.ProductID, err)
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.CurrentPrice,
			Quantity:  it.Quantity,
		})
		total += p.CurrentPrice * float64(it.Quantity)
	}

	now := s.now()
	o := domain.Order{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		Email:          req.Email,
		Items:          items,
		TotalAmount:    total,
		Currency:       s.currency,
		GatewayOrderID: newGatewayOrderID(),
		PaymentStatus:  domain.PaymentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return domain.Order{}, fmt.Errorf("order_service: create %s: %w", o.ID, err)
	}

	audit(ctx, s.audit, s.logger, "order.created", map[string]any{
		"order_id": o.ID,
		"user_id":  o.UserID,
		"total":    o.TotalAmount,
		"items":    len(o.Items),
	})
	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", o.ID),
		slog.String("gateway_order_id", o.GatewayOrderID),
		slog.Float64("total", o.TotalAmount),
	)
	return o, nil
}

// newGatewayOrderID mimics the gateway's id format for orders created
// without a live gateway.
func newGatewayOrderID() string {
	return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// VerifyPayment checks the gateway signature, marks the order paid and
// queues one purchase per line item. It returns before the prices move.
// Confirming an already paid order is a no-op, including when two
// confirmations race: only the one that marks the order paid queues
// purchases.
func (s *OrderService) VerifyPayment(ctx context.Context, conf domain.PaymentConfirmation) (domain.Order, error) {
	o, err := s.orders.GetByID(ctx, conf.OrderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: verify %s: %w", conf.OrderID, err)
	}

	if s.verifier != nil && s.verifier.Enabled() {
		if conf.GatewayOrderID != o.GatewayOrderID ||
			!s.verifier.Verify(conf.GatewayOrderID, conf.GatewayPaymentID, conf.Signature) {
			s.logger.WarnContext(ctx, "payment signature rejected", slog.String("order_id", o.ID))
			return domain.Order{}, domain.ErrInvalidSignature
		}
	}
	if o.PaymentStatus == domain.PaymentStatusCompleted {
		return o, nil
	}

	err = s.orders.MarkPaid(ctx, o.ID, conf.GatewayPaymentID)
	if errors.Is(err, domain.ErrAlreadyPaid) {
		paid, err := s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order_service: verify %s: %w", o.ID, err)
		}
		return paid, nil
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: mark paid %s: %w", o.ID, err)
	}
	o.PaymentStatus = domain.PaymentStatusCompleted
	o.GatewayPaymentID = conf.GatewayPaymentID
	o.UpdatedAt = s.now()

	var refused []string
	for _, it := range o.Items {
		job := queue.PurchaseJob{OrderID: o.ID, ProductID: it.ProductID, EnqueuedAt: s.now()}
		if s.queue != nil && s.queue.Submit(job) {
			continue
		}
		refused = append(refused, it.ProductID)
	}
	if len(refused) > 0 {
		s.applyInBackground(ctx, o.ID, refused)
	}

	audit(ctx, s.audit, s.logger, "order.paid", map[string]any{
		"order_id":           o.ID,
		"gateway_payment_id": conf.GatewayPaymentID,
	})
	s.logger.InfoContext(ctx, "payment verified",
		slog.String("order_id", o.ID),
		slog.Int("items", len(o.Items)),
	)
	return o, nil
}

// applyInBackground applies purchases the queue refused without holding up
// the payment response. The work outlives the request but not
// fallbackTimeout.
func (s *OrderService) applyInBackground(ctx context.Context, orderID string, productIDs []string) {
	s.logger.WarnContext(ctx, "purchase queue refused jobs, applying in background",
		slog.String("order_id", orderID),
		slog.Int("count", len(productIDs)),
	)
	audit(ctx, s.audit, s.logger, "order.purchase_deferred", map[string]any{
		"order_id":    orderID,
		"product_ids": productIDs,
	})

	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fallbackTimeout)
	s.fallback.Add(1)
	go func() {
		defer s.fallback.Done()
		defer cancel()
		for _, id := range productIDs {
			if _, err := s.products.ApplyPurchase(bg, id); err != nil {
				s.logger.Error("background purchase failed",
					slog.String("order_id", orderID),
					slog.String("product_id", id),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}

// Wait blocks until every background purchase has finished.
func (s *OrderService) Wait() {
	s.fallback.Wait()
}

// ListByUser returns a user's orders, newest first.
func (s *OrderService) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("order_service: list for %s: %w", userID, err)
	}
	return orders, nil
}
