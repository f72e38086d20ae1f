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

// ProfileStore implements domain.ProfileStore, keeping the whole profile in
// one JSONB column.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a ProfileStore backed by the given pool.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Get returns a profile or domain.ErrNotFound.
func (s *ProfileStore) Get(ctx context.Context, id string) (domain.Profile, error) {
	var state []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM profiles WHERE id = $1`, id).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, domain.ErrNotFound
		}
		return domain.Profile{}, fmt.Errorf("postgres: get profile %s: %w", id, err)
	}

	var p domain.Profile
	if err := json.Unmarshal(state, &p); err != nil {
		return domain.Profile{}, fmt.Errorf("postgres: unmarshal profile %s: %w", id, err)
	}
	p.ID = id
	return p, nil
}

// Save upserts a profile. The last write wins.
func (s *ProfileStore) Save(ctx context.Context, p domain.Profile) error {
	state, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("postgres: marshal profile %s: %w", p.ID, err)
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO profiles (id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		p.ID, state, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: save profile %s: %w", p.ID, err)
	}
	return nil
}

var _ domain.ProfileStore = (*ProfileStore)(nil)
