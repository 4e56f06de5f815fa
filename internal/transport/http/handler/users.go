package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/pkg/validate"
	"github.com/identity-api/internal/transport/http/middleware"
)

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	AssignRole(ctx context.Context, userID, role string) error
}

// UserHandler serves the authenticated user's own record and admin-side
// user management.
type UserHandler struct {
	users userStore
}

func NewUserHandler(users userStore) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.users.Get(r.Context(), claims.Subject)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type assignRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user"`
}

// AssignRole changes a user's role. Reachable only through the admin-gated
// route group; this is the sole path to an administrator role.
func (h *UserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if _, err := h.users.Get(r.Context(), userID); err != nil {
		httpError(w, err)
		return
	}
	if err := h.users.AssignRole(r.Context(), userID, req.Role); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "role updated"})
}
