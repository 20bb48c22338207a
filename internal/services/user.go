package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hoa-ledger/apiserver/internal/auth"
	"github.com/hoa-ledger/apiserver/internal/store"
	"github.com/hoa-ledger/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, id int, update types.UserUpdate) (types.User, error)
	Delete(ctx context.Context, id int) (types.User, error)
}

// UserInput is a partial user update. Nil fields are left untouched.
type UserInput struct {
	Username *string
	Password *string
	Role     *string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	return user, mapUserError(err)
}

func (s *UserService) Update(ctx context.Context, id int, input UserInput) (types.User, error) {
	var update types.UserUpdate
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" || len(username) > maxUsernameLength {
			return types.User{}, invalid("username must be 1 to %d characters", maxUsernameLength)
		}
		update.Username = &username
	}
	if input.Role != nil {
		role, err := parseUserRole(*input.Role)
		if err != nil {
			return types.User{}, err
		}
		update.Role = &role
	}
	if input.Password != nil {
		if *input.Password == "" {
			return types.User{}, invalid("password must not be empty")
		}
		hash, err := auth.HashPassword(*input.Password)
		if err != nil {
			return types.User{}, err
		}
		update.PasswordHash = &hash
	}

	user, err := s.repo.Update(ctx, id, update)
	return user, mapUserError(err)
}

func (s *UserService) Delete(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.Delete(ctx, id)
	return user, mapUserError(err)
}

func mapUserError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrUsernameTaken
	case errors.Is(err, store.ErrNoChanges):
		return invalid("no fields to update")
	default:
		return fmt.Errorf("users: %w", err)
	}
}
