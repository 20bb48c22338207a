package store

import (
	"context"
	"database/sql"

	"github.com/hoa-ledger/apiserver/types"
)

const userColumns = `id, username, role, password_hash, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	created, err := scanUser(r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.Role))
	if err != nil {
		return types.User{}, mapError(err)
	}
	return created, nil
}

func (r *UserRepository) Update(ctx context.Context, id int, update types.UserUpdate) (types.User, error) {
	var set updateSet
	if update.Username != nil {
		set.set("username", *update.Username)
	}
	if update.Role != nil {
		set.set("role", *update.Role)
	}
	if update.PasswordHash != nil {
		set.set("password_hash", *update.PasswordHash)
	}
	if set.empty() {
		return types.User{}, ErrNoChanges
	}

	query, args := set.build("users", "id", id, userColumns)
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int) (types.User, error) {
	const query = `DELETE FROM users WHERE id = $1 RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

// EnsureAdmin creates the named admin unless a user with that name already
// exists. It reports whether a row was inserted.
func (r *UserRepository) EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	const query = `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, 'admin')
		ON CONFLICT (username) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return false, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
