package handler

import (
	"context"
	"net/http"

	"github.com/identity-api/internal/domain"
)

type roleLister interface {
	Scan(ctx context.Context) ([]domain.Role, error)
}

// RoleHandler lists configured roles (admin only).
type RoleHandler struct {
	roles roleLister
}

func NewRoleHandler(roles roleLister) *RoleHandler {
	return &RoleHandler{roles: roles}
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.Scan(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}
