package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/identity-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRoleStore struct{ mock.Mock }

func (m *mockRoleStore) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	args := m.Called(ctx, name)
	if r, _ := args.Get(0).(*domain.Role); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRoleStore) Put(ctx context.Context, role *domain.Role) error {
	return m.Called(ctx, role).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

// --- helpers ---

func newSvc(rs *mockRoleStore, us *mockUserStore) Service {
	return NewService(ServiceDeps{
		RoleRepo:      rs,
		UserRepo:      us,
		AdminEmail:    "admin@example.com",
		AdminPassword: "Adm1nSecret",
	})
}

// --- EnsureSeeded ---

func TestEnsureSeeded_FreshStore_CreatesEverything(t *testing.T) {
	rs := &mockRoleStore{}
	us := &mockUserStore{}
	rs.On("GetByName", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	rs.On("Put", mock.Anything, mock.AnythingOfType("*domain.Role")).Return(nil)
	us.On("GetByEmail", mock.Anything, "admin@example.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	err := newSvc(rs, us).EnsureSeeded(context.Background())

	require.NoError(t, err)
	rs.AssertNumberOfCalls(t, "Put", len(domain.BaselineRoles))
	us.AssertNumberOfCalls(t, "Put", 1)
}

func TestEnsureSeeded_SecondRun_CreatesNothing(t *testing.T) {
	rs := &mockRoleStore{}
	us := &mockUserStore{}
	rs.On("GetByName", mock.Anything, domain.RoleAdmin).Return(&domain.Role{Name: domain.RoleAdmin}, nil)
	rs.On("GetByName", mock.Anything, domain.RoleUser).Return(&domain.Role{Name: domain.RoleUser}, nil)
	us.On("GetByEmail", mock.Anything, "admin@example.com").Return(&domain.User{Email: "admin@example.com"}, nil)

	err := newSvc(rs, us).EnsureSeeded(context.Background())

	require.NoError(t, err)
	rs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestEnsureSeeded_AdminCreatedVerifiedWithAdminRole(t *testing.T) {
	rs := &mockRoleStore{}
	us := &mockUserStore{}
	rs.On("GetByName", mock.Anything, mock.Anything).Return(&domain.Role{}, nil)
	us.On("GetByEmail", mock.Anything, "admin@example.com").Return(nil, domain.ErrNotFound)
	var created *domain.User
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)

	err := newSvc(rs, us).EnsureSeeded(context.Background())

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, domain.RoleAdmin, created.Role)
	assert.True(t, created.EmailConfirmed)
	assert.NotEmpty(t, created.PasswordHash)
	assert.NotEqual(t, "Adm1nSecret", created.PasswordHash)
}

func TestEnsureSeeded_MissingAdminPassword_Fails(t *testing.T) {
	rs := &mockRoleStore{}
	us := &mockUserStore{}
	rs.On("GetByName", mock.Anything, mock.Anything).Return(&domain.Role{}, nil)
	us.On("GetByEmail", mock.Anything, "admin@example.com").Return(nil, domain.ErrNotFound)

	svc := NewService(ServiceDeps{RoleRepo: rs, UserRepo: us, AdminEmail: "admin@example.com"})
	err := svc.EnsureSeeded(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEED_ADMIN_PASSWORD")
}

func TestEnsureSeeded_StoreError_Propagates(t *testing.T) {
	rs := &mockRoleStore{}
	us := &mockUserStore{}
	boom := errors.New("table offline")
	rs.On("GetByName", mock.Anything, domain.RoleAdmin).Return(nil, boom)

	err := newSvc(rs, us).EnsureSeeded(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}
