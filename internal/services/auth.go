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

const maxUsernameLength = 50

// RegisterInput is a public or admin registration request.
type RegisterInput struct {
	Username string
	Password string
	Role     string
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	Principal auth.Principal
}

// AuthService registers users and authenticates both users and neighbors.
type AuthService struct {
	users     UserRepository
	neighbors NeighborRepository
	tokens    *auth.TokenManager
}

func NewAuthService(users UserRepository, neighbors NeighborRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, neighbors: neighbors, tokens: tokens}
}

// Register creates a user. Only a caller holding the admin role may create
// another admin.
func (s *AuthService) Register(ctx context.Context, input RegisterInput, callerRole string) (types.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return types.User{}, invalid("username and password are required")
	}
	if len(username) > maxUsernameLength {
		return types.User{}, invalid("username must be at most %d characters", maxUsernameLength)
	}

	role, err := parseUserRole(input.Role)
	if err != nil {
		return types.User{}, err
	}
	if role == types.RoleAdmin && callerRole != types.RoleAdmin {
		return types.User{}, ErrForbidden
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{Username: username, PasswordHash: hash, Role: role})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrUsernameTaken
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks identifier against users first and, only when no user
// has that name, against neighbors (upper-cased). A user whose password does
// not match never falls through to the neighbor lookup.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, identifier)
	switch {
	case err == nil:
		return s.login(auth.UserPrincipal(user), password)
	case !errors.Is(err, store.ErrNotFound):
		return Session{}, fmt.Errorf("load user: %w", err)
	}

	return s.AuthenticateNeighbor(ctx, identifier, password)
}

// AuthenticateNeighbor checks credentials against neighbors only.
func (s *AuthService) AuthenticateNeighbor(ctx context.Context, userID, password string) (Session, error) {
	userID = strings.ToUpper(strings.TrimSpace(userID))
	if userID == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	neighbor, err := s.neighbors.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load neighbor: %w", err)
	}
	return s.login(auth.NeighborPrincipal(neighbor), password)
}

func (s *AuthService) login(principal auth.Principal, password string) (Session, error) {
	if !auth.CheckPassword(principal.PasswordHash(), password) {
		return Session{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(principal)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Principal: principal}, nil
}

func parseUserRole(raw string) (string, error) {
	switch role := strings.ToLower(strings.TrimSpace(raw)); role {
	case "":
		return types.RoleUser, nil
	case types.RoleUser, types.RoleAdmin:
		return role, nil
	default:
		return "", invalid("role must be admin or user")
	}
}
