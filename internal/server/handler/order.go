package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// OrderService defines the methods that the order handler requires from the
// service layer.
type OrderService interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error)
	VerifyPayment(ctx context.Context, conf domain.PaymentConfirmation) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Order, error)
}

// OrderHandler serves checkout endpoints.
type OrderHandler struct {
	orders OrderService
	keyID  string
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler. keyID is the public gateway key
// returned to clients so they can open the payment form.
func NewOrderHandler(orders OrderService, keyID string, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, keyID: keyID, logger: logHandler(logger, "order")}
}

type createOrderResponse struct {
	OrderID        string       `json:"order_id"`
	GatewayOrderID string       `json:"gateway_order_id"`
	Amount         float64      `json:"amount"`
	Currency       string       `json:"currency"`
	KeyID          string       `json:"key_id,omitempty"`
	Order          domain.Order `json:"order"`
}

// CreateOrder prices a checkout and returns the gateway order to pay.
// POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create order")
		return
	}
	writeJSON(w, http.StatusCreated, createOrderResponse{
		OrderID:        o.ID,
		GatewayOrderID: o.GatewayOrderID,
		Amount:         o.TotalAmount,
		Currency:       o.Currency,
		KeyID:          h.keyID,
		Order:          o,
	})
}

// VerifyPayment confirms a payment. Price updates happen after the response.
// POST /api/orders/{id}/verify
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var conf domain.PaymentConfirmation
	if err := decodeJSON(w, r, &conf); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conf.OrderID = pathParam(r, "id")

	o, err := h.orders.VerifyPayment(r.Context(), conf)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to verify payment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Payment verified successfully",
		"status":  o.PaymentStatus,
	})
}

// ListUserOrders returns a user's orders, newest first.
// GET /api/orders/user/{user_id}
func (h *OrderHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), pathParam(r, "user_id"), parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
