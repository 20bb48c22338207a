package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hoa-ledger/apiserver/internal/db"
	"github.com/hoa-ledger/apiserver/types"
)

const neighborColumns = `user_id, name, house_id, email, phone, password_hash, created_at, updated_at`

// NeighborRepository handles persistence for neighbors.
type NeighborRepository struct {
	db *sql.DB
}

func NewNeighborRepository(db *sql.DB) *NeighborRepository {
	return &NeighborRepository{db: db}
}

func scanNeighbor(row rowScanner) (types.Neighbor, error) {
	var neighbor types.Neighbor
	err := row.Scan(
		&neighbor.UserID,
		&neighbor.Name,
		&neighbor.HouseID,
		&neighbor.Email,
		&neighbor.Phone,
		&neighbor.PasswordHash,
		&neighbor.CreatedAt,
		&neighbor.UpdatedAt,
	)
	return neighbor, err
}

func (r *NeighborRepository) List(ctx context.Context) ([]types.Neighbor, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+neighborColumns+` FROM neighbors ORDER BY house_id, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	neighbors := make([]types.Neighbor, 0)
	for rows.Next() {
		neighbor, err := scanNeighbor(rows)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, neighbor)
	}
	return neighbors, rows.Err()
}

func (r *NeighborRepository) Get(ctx context.Context, userID string) (types.Neighbor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+neighborColumns+` FROM neighbors WHERE user_id = $1`, userID)
	neighbor, err := scanNeighbor(row)
	if err != nil {
		return types.Neighbor{}, mapError(err)
	}
	return neighbor, nil
}

func (r *NeighborRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM neighbors WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, err
}

// Create inserts a neighbor after locking its house row, so the house cannot
// be deleted between the check and the insert. A missing house is reported
// as ErrNotFound.
func (r *NeighborRepository) Create(ctx context.Context, neighbor types.Neighbor) (types.Neighbor, error) {
	var created types.Neighbor
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var houseID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM houses WHERE id = $1 FOR SHARE`, neighbor.HouseID).Scan(&houseID)
		if err != nil {
			return fmt.Errorf("house %q: %w", neighbor.HouseID, mapError(err))
		}

		const query = `
			INSERT INTO neighbors (user_id, password_hash, name, house_id, email, phone)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING ` + neighborColumns
		created, err = scanNeighbor(tx.QueryRowContext(
			ctx,
			query,
			neighbor.UserID,
			neighbor.PasswordHash,
			neighbor.Name,
			houseID,
			neighbor.Email,
			neighbor.Phone,
		))
		return mapError(err)
	})
	if err != nil {
		return types.Neighbor{}, err
	}
	return created, nil
}

func (r *NeighborRepository) Update(ctx context.Context, userID string, update types.NeighborUpdate) (types.Neighbor, error) {
	var set updateSet
	if update.Name != nil {
		set.set("name", *update.Name)
	}
	if update.HouseID != nil {
		set.set("house_id", *update.HouseID)
	}
	if update.Email != nil {
		set.setNullable("email", update.Email)
	}
	if update.Phone != nil {
		set.setNullable("phone", update.Phone)
	}
	if update.PasswordHash != nil {
		set.set("password_hash", *update.PasswordHash)
	}
	if set.empty() {
		return types.Neighbor{}, ErrNoChanges
	}

	query, args := set.build("neighbors", "user_id", userID, neighborColumns)
	neighbor, err := scanNeighbor(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return types.Neighbor{}, mapError(err)
	}
	return neighbor, nil
}

// Delete removes a neighbor. Neighbors with charges or payments cannot be
// deleted (ErrReferenced).
func (r *NeighborRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM neighbors WHERE user_id = $1`, userID)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
