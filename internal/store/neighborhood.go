package store

import (
	"context"
	"database/sql"

	"github.com/hoa-ledger/apiserver/types"
)

// NeighborhoodRepository persists the singleton configuration row.
type NeighborhoodRepository struct {
	db *sql.DB
}

func NewNeighborhoodRepository(db *sql.DB) *NeighborhoodRepository {
	return &NeighborhoodRepository{db: db}
}

func (r *NeighborhoodRepository) Get(ctx context.Context) (types.Neighborhood, error) {
	const query = `SELECT name, periodicity, amount, updated_at FROM neighborhood WHERE id = 1`
	var cfg types.Neighborhood
	err := r.db.QueryRowContext(ctx, query).Scan(&cfg.Name, &cfg.Periodicity, &cfg.Amount, &cfg.UpdatedAt)
	if err != nil {
		return types.Neighborhood{}, mapError(err)
	}
	return cfg, nil
}

// Upsert writes the configuration in a single statement keyed on the fixed
// row id, so concurrent writers can never create a second row.
func (r *NeighborhoodRepository) Upsert(ctx context.Context, cfg types.Neighborhood) (types.Neighborhood, error) {
	const query = `
		INSERT INTO neighborhood (id, name, periodicity, amount)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			periodicity = EXCLUDED.periodicity,
			amount = EXCLUDED.amount,
			updated_at = NOW()
		RETURNING name, periodicity, amount, updated_at`
	var saved types.Neighborhood
	err := r.db.QueryRowContext(ctx, query, cfg.Name, string(cfg.Periodicity), cfg.Amount).
		Scan(&saved.Name, &saved.Periodicity, &saved.Amount, &saved.UpdatedAt)
	if err != nil {
		return types.Neighborhood{}, mapError(err)
	}
	return saved, nil
}
