package domain

import "time"

// PaymentStatus represents where an order is in the payment flow.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// OrderItem is one line of an order. Price is captured when the order is
// created and is not affected by later price movements.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Order is a customer checkout.
type Order struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	Email            string        `json:"email"`
	Items            []OrderItem   `json:"products"`
	TotalAmount      float64       `json:"total_amount"`
	Currency         string        `json:"currency"`
	GatewayOrderID   string        `json:"gateway_order_id"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// OrderRequest is the checkout payload.
type OrderRequest struct {
	UserID string             `json:"user_id"`
	Email  string             `json:"email"`
	Items  []OrderRequestItem `json:"products"`
}

// OrderRequestItem names a product and how many units to buy.
type OrderRequestItem struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"quantity"`
}

// PaymentConfirmation is what the payment gateway sends back after checkout.
type PaymentConfirmation struct {
	OrderID          string `json:"order_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}
