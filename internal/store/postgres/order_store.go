package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates an OrderStore backed by the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderCols = `id, user_id, email, items, total_amount, currency,
	gateway_order_id, gateway_payment_id, payment_status, created_at, updated_at`

// Create inserts a new order.
func (s *OrderStore) Create(ctx context.Context, o domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("postgres: marshal order items %s: %w", o.ID, err)
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO orders (`+orderCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.UserID, o.Email, items, o.TotalAmount, o.Currency,
		o.GatewayOrderID, o.GatewayPaymentID, string(o.PaymentStatus),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: create order %s: %w", o.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create order %s: %w", o.ID, err)
	}
	return nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var items []byte
	var status string
	if err := row.Scan(
		&o.ID, &o.UserID, &o.Email, &items, &o.TotalAmount, &o.Currency,
		&o.GatewayOrderID, &o.GatewayPaymentID, &status, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	o.PaymentStatus = domain.PaymentStatus(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal items: %w", err)
	}
	return o, nil
}

// GetByID returns an order or domain.ErrNotFound.
func (s *OrderStore) GetByID(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %s: %w", id, err)
	}
	return o, nil
}

// MarkPaid records the gateway payment id and completes the order. The
// status guard in the WHERE clause lets exactly one concurrent caller win.
func (s *OrderStore) MarkPaid(ctx context.Context, id, gatewayPaymentID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE orders
		SET gateway_payment_id = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status <> $3`,
		id, gatewayPaymentID, string(domain.PaymentStatusCompleted))
	if err != nil {
		return fmt.Errorf("postgres: mark order paid %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: mark order paid %s: %w", id, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyPaid
}

// ListByUser returns a user's orders, newest first.
func (s *OrderStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Order, error) {
	query, args := withListOpts(`SELECT `+orderCols+` FROM orders WHERE user_id = $1`, []any{userID},
		"created_at", "created_at DESC, id ASC", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list orders rows: %w", err)
	}
	return out, nil
}

var _ domain.OrderStore = (*OrderStore)(nil)
