package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// Service guarantees baseline identity data exists before the server starts
// accepting traffic. EnsureSeeded is idempotent: roles are keyed by name and
// the administrator account by email, so reruns create nothing new.
type Service interface {
	EnsureSeeded(ctx context.Context) error
}

type roleStore interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Put(ctx context.Context, role *domain.Role) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

type service struct {
	roleRepo      roleStore
	userRepo      userStore
	adminEmail    string
	adminPassword string
}

type ServiceDeps struct {
	RoleRepo      roleStore
	UserRepo      userStore
	AdminEmail    string
	AdminPassword string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		roleRepo:      deps.RoleRepo,
		userRepo:      deps.UserRepo,
		adminEmail:    deps.AdminEmail,
		adminPassword: deps.AdminPassword,
	}
}

func (s *service) EnsureSeeded(ctx context.Context) error {
	for _, name := range domain.BaselineRoles {
		if err := s.ensureRole(ctx, name); err != nil {
			return fmt.Errorf("seed role %q: %w", name, err)
		}
	}
	if err := s.ensureAdmin(ctx); err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	return nil
}

func (s *service) ensureRole(ctx context.Context, name string) error {
	_, err := s.roleRepo.GetByName(ctx, name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	slog.Info("seeding role", "name", name)
	return s.roleRepo.Put(ctx, &domain.Role{
		RoleID: id.New(),
		Name:   name,
		Enable: true,
	})
}

func (s *service) ensureAdmin(ctx context.Context) error {
	_, err := s.userRepo.GetByEmail(ctx, s.adminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if s.adminPassword == "" {
		return fmt.Errorf("SEED_ADMIN_PASSWORD is not set")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(s.adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	slog.Info("seeding administrator account", "email", s.adminEmail)
	now := time.Now().UTC()
	return s.userRepo.Put(ctx, &domain.User{
		UserID:         id.New(),
		Email:          s.adminEmail,
		PasswordHash:   string(hash),
		Role:           domain.RoleAdmin,
		EmailConfirmed: true,
		Enable:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}
