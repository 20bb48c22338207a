package store

import (
	"context"
	"database/sql"

	"github.com/hoa-ledger/apiserver/types"
)

const houseColumns = `id, owner, created_at, updated_at`

// HouseRepository handles persistence for houses.
type HouseRepository struct {
	db *sql.DB
}

func NewHouseRepository(db *sql.DB) *HouseRepository {
	return &HouseRepository{db: db}
}

func scanHouse(row rowScanner) (types.House, error) {
	var house types.House
	err := row.Scan(&house.ID, &house.Owner, &house.CreatedAt, &house.UpdatedAt)
	return house, err
}

func (r *HouseRepository) List(ctx context.Context) ([]types.House, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+houseColumns+` FROM houses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	houses := make([]types.House, 0)
	for rows.Next() {
		house, err := scanHouse(rows)
		if err != nil {
			return nil, err
		}
		houses = append(houses, house)
	}
	return houses, rows.Err()
}

func (r *HouseRepository) Get(ctx context.Context, id string) (types.House, error) {
	house, err := scanHouse(r.db.QueryRowContext(ctx, `SELECT `+houseColumns+` FROM houses WHERE id = $1`, id))
	if err != nil {
		return types.House{}, mapError(err)
	}
	return house, nil
}

func (r *HouseRepository) Create(ctx context.Context, house types.House) (types.House, error) {
	const query = `INSERT INTO houses (id, owner) VALUES ($1, $2) RETURNING ` + houseColumns
	created, err := scanHouse(r.db.QueryRowContext(ctx, query, house.ID, house.Owner))
	if err != nil {
		return types.House{}, mapError(err)
	}
	return created, nil
}

func (r *HouseRepository) Update(ctx context.Context, id string, update types.HouseUpdate) (types.House, error) {
	var set updateSet
	if update.ID != nil {
		set.set("id", *update.ID)
	}
	if update.Owner != nil {
		set.setNullable("owner", update.Owner)
	}
	if set.empty() {
		return types.House{}, ErrNoChanges
	}

	query, args := set.build("houses", "id", id, houseColumns)
	house, err := scanHouse(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return types.House{}, mapError(err)
	}
	return house, nil
}

// Delete removes a house. It fails with ErrReferenced while any neighbor
// still lives there.
func (r *HouseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM houses WHERE id = $1`, id)
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
