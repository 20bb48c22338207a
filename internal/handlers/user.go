package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/hoa-ledger/apiserver/types"
)

// UserHandler provides HTTP handlers for users.
type UserHandler struct {
	userService *services.UserService
	authService *services.AuthService
}

// NewUserHandler constructs a handler with the provided services.
func NewUserHandler(userService *services.UserService, authService *services.AuthService) *UserHandler {
	return &UserHandler{userService: userService, authService: authService}
}

// UserRouter registers user routes. Reads are open to any authenticated
// caller, writes need an admin.
func UserRouter(r chi.Router, userService *services.UserService, authService *services.AuthService) {
	handler := NewUserHandler(userService, authService)
	admin := RequireRole(types.RoleAdmin)

	r.Get("/", handler.ListUsers)
	r.With(admin).Post("/", handler.CreateUser)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.With(admin).Put("/", handler.UpdateUser)
		r.With(admin).Delete("/", handler.DeleteUser)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	}, types.RoleAdmin)
	if err != nil {
		writeServiceError(w, r, err, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, UserResponse{User: user})
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Update(r.Context(), id, services.UserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, DeletedUserResponse{Deleted: DeletedUser{ID: user.ID, Username: user.Username}})
}

type UpdateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type DeletedUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type DeletedUserResponse struct {
	Deleted DeletedUser `json:"deleted"`
}

func parseUserID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "userID")))
	if err != nil || id < 1 {
		return 0, errors.New("invalid user id")
	}
	return id, nil
}
