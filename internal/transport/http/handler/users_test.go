package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/identity-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) AssignRole(ctx context.Context, userID, role string) error {
	return m.Called(ctx, userID, role).Error(0)
}

func putRole(t *testing.T, h *UserHandler, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Put("/users/{id}/role", h.AssignRole)
	req := httptest.NewRequest(http.MethodPut, "/users/"+userID+"/role", bytes.NewReader(b))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestAssignRole_PromotesUser(t *testing.T) {
	us := new(mockUserStore)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Role: domain.RoleUser}, nil)
	us.On("AssignRole", mock.Anything, "u1", domain.RoleAdmin).Return(nil)

	rr := putRole(t, NewUserHandler(us), "u1", map[string]string{"role": "admin"})

	assert.Equal(t, http.StatusOK, rr.Code)
	us.AssertCalled(t, "AssignRole", mock.Anything, "u1", domain.RoleAdmin)
}

func TestAssignRole_UnknownUser_NotFound(t *testing.T) {
	us := new(mockUserStore)
	us.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	rr := putRole(t, NewUserHandler(us), "ghost", map[string]string{"role": "admin"})

	assert.Equal(t, http.StatusNotFound, rr.Code)
	us.AssertNotCalled(t, "AssignRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignRole_UnknownRole_Rejected(t *testing.T) {
	us := new(mockUserStore)

	rr := putRole(t, NewUserHandler(us), "u1", map[string]string{"role": "superuser"})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	us.AssertNotCalled(t, "AssignRole", mock.Anything, mock.Anything, mock.Anything)
}
