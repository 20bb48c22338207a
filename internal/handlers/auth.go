package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hoa-ledger/apiserver/internal/auth"
	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/hoa-ledger/apiserver/types"
)

// AuthHandler provides registration and login endpoints.
type AuthHandler struct {
	authService *services.AuthService
	tokens      *auth.TokenManager
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens}
}

// AuthRouter registers the public auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, tokens *auth.TokenManager) {
	handler := NewAuthHandler(authService, tokens)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/neighbor/login", handler.NeighborLogin)
}

// RequireAuth verifies the bearer token and stores its claims in the request
// context. A missing header is answered with 401, a bad token with 403.
func RequireAuth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "token required")
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				writeError(w, http.StatusForbidden, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireRole lets the request through only when the verified token carries
// one of roles. It must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "token required")
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

// Register creates a user account. Creating an admin requires an admin token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	}, h.callerRole(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, UserResponse{User: user})
}

// Login authenticates a user or, failing that, a neighbor.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondSession(w, r, func(ctx context.Context) (services.Session, error) {
		return h.authService.Authenticate(ctx, req.Username, req.Password)
	})
}

// NeighborLogin authenticates a neighbor by user id.
func (h *AuthHandler) NeighborLogin(w http.ResponseWriter, r *http.Request) {
	var req NeighborLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondSession(w, r, func(ctx context.Context) (services.Session, error) {
		return h.authService.AuthenticateNeighbor(ctx, req.UserID, req.Password)
	})
}

func (h *AuthHandler) respondSession(w http.ResponseWriter, r *http.Request, login func(context.Context) (services.Session, error)) {
	session, err := login(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to authenticate")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Token: session.Token,
		Role:  session.Principal.Role(),
		Name:  session.Principal.DisplayName(),
	})
}

// callerRole is the role of an optional valid token on a public route.
func (h *AuthHandler) callerRole(r *http.Request) string {
	tokenString, err := bearerToken(r)
	if err != nil {
		return ""
	}
	claims, err := h.tokens.Parse(tokenString)
	if err != nil {
		return ""
	}
	return claims.Role
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type NeighborLoginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

type UserResponse struct {
	User types.User `json:"user"`
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
