package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "username", "role", "password_hash", "created_at", "updated_at"}

func TestUserRepositoryGetByUsername(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewUserRepository(conn)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "admin", "admin", "hash", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userCols))

	user, err := repo.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, types.RoleAdmin, user.Role)

	_, err = repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepositoryCreateDuplicate(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewUserRepository(conn)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("ana", "hash", "user").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	_, err := repo.Create(context.Background(), types.User{Username: "ana", PasswordHash: "hash", Role: "user"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserRepositoryUpdate(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewUserRepository(conn)
	now := time.Now()

	_, err := repo.Update(context.Background(), 3, types.UserUpdate{})
	assert.ErrorIs(t, err, ErrNoChanges)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET username = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs("bea", 3).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(3, "bea", "user", "hash", now, now))

	name := "bea"
	user, err := repo.Update(context.Background(), 3, types.UserUpdate{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "bea", user.Username)
}

func TestUserRepositoryEnsureAdmin(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewUserRepository(conn)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (username) DO NOTHING")).
		WithArgs("admin", "hash").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (username) DO NOTHING")).
		WithArgs("admin", "hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.EnsureAdmin(context.Background(), "admin", "hash")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.EnsureAdmin(context.Background(), "admin", "hash")
	require.NoError(t, err)
	assert.False(t, created)
}
