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

// ProductStore implements domain.ProductStore using PostgreSQL.
type ProductStore struct {
	pool *pgxpool.Pool
}

// NewProductStore creates a ProductStore backed by the given pool.
func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

const productCols = `id, name, description, category, image_url,
	base_price, max_retail_price, price_increment_percent, price_decrement_rate,
	current_price, crash_sale_active, purchase_count, last_purchase_time,
	decay_base, price_history, created_at, updated_at`

func historyJSON(p domain.Product) ([]byte, error) {
	h := p.PriceHistory
	if h == nil {
		h = []domain.PricePoint{}
	}
	return json.Marshal(h)
}

// Create inserts a new product.
func (s *ProductStore) Create(ctx context.Context, p domain.Product) error {
	history, err := historyJSON(p)
	if err != nil {
		return fmt.Errorf("postgres: marshal history %s: %w", p.ID, err)
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO products (`+productCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		p.ID, p.Name, p.Description, p.Category, p.ImageURL,
		p.BasePrice, p.MaxRetailPrice, p.PriceIncrementPercent, p.PriceDecrementRate,
		p.CurrentPrice, p.CrashSaleActive, p.PurchaseCount, p.LastPurchaseTime,
		p.DecayBase, history, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: create product %s: %w", p.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create product %s: %w", p.ID, err)
	}
	return nil
}

// Save overwrites every mutable column of an existing product.
func (s *ProductStore) Save(ctx context.Context, p domain.Product) error {
	history, err := historyJSON(p)
	if err != nil {
		return fmt.Errorf("postgres: marshal history %s: %w", p.ID, err)
	}

	tag, err := s.pool.Exec(ctx, `UPDATE products SET
			name = $2, description = $3, category = $4, image_url = $5,
			base_price = $6, max_retail_price = $7,
			price_increment_percent = $8, price_decrement_rate = $9,
			current_price = $10, crash_sale_active = $11, purchase_count = $12,
			last_purchase_time = $13, decay_base = $14, price_history = $15,
			updated_at = $16
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Category, p.ImageURL,
		p.BasePrice, p.MaxRetailPrice, p.PriceIncrementPercent, p.PriceDecrementRate,
		p.CurrentPrice, p.CrashSaleActive, p.PurchaseCount, p.LastPurchaseTime,
		p.DecayBase, history, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save product %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	var history []byte
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.ImageURL,
		&p.BasePrice, &p.MaxRetailPrice, &p.PriceIncrementPercent, &p.PriceDecrementRate,
		&p.CurrentPrice, &p.CrashSaleActive, &p.PurchaseCount, &p.LastPurchaseTime,
		&p.DecayBase, &history, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.PriceHistory); err != nil {
			return domain.Product{}, fmt.Errorf("unmarshal history: %w", err)
		}
	}
	return p, nil
}

// GetByID returns a product or domain.ErrNotFound.
func (s *ProductStore) GetByID(ctx context.Context, id string) (domain.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("postgres: get product %s: %w", id, err)
	}
	return p, nil
}

// List returns products ordered by creation time.
func (s *ProductStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Product, error) {
	query, args := withListOpts(`SELECT `+productCols+` FROM products WHERE 1=1`, nil,
		"created_at", "created_at ASC, id ASC", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list products rows: %w", err)
	}
	return out, nil
}

// Delete removes a product.
func (s *ProductStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the number of products.
func (s *ProductStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count products: %w", err)
	}
	return n, nil
}

var _ domain.ProductStore = (*ProductStore)(nil)
