package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/identity-api/internal/application/notification"
	"github.com/identity-api/internal/application/otp"
	"github.com/identity-api/internal/domain"
	jwtinfra "github.com/identity-api/internal/infrastructure/jwt"
	"github.com/identity-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

type VerifyEmailRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ConfirmPasswordResetRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

type ResendOtpRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required"`
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	VerifyEmail(ctx context.Context, userID, code string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID, code, newPassword string) error
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ResendOtp(ctx context.Context, email string, purpose domain.OtpPurpose) error
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	SetEmailVerified(ctx context.Context, userID string) error
	AssignRole(ctx context.Context, userID, role string) error
}

type refreshTokenStore interface {
	Put(ctx context.Context, rec *domain.RefreshTokenRecord) error
	Get(ctx context.Context, tokenID string) (*domain.RefreshTokenRecord, error)
	Revoke(ctx context.Context, tokenID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type tokenIssuer interface {
	IssueAccessToken(userID, role string) (string, error)
	IssueRefreshToken(userID string) (string, *domain.RefreshTokenRecord, error)
	Validate(token string) (*jwtinfra.Claims, error)
}

// PasswordPolicy is loaded from configuration; it is never hard-coded.
type PasswordPolicy struct {
	MinLength    int
	RequireMixed bool // upper + lower + digit
}

type service struct {
	userRepo    userStore
	refreshRepo refreshTokenStore
	otpLedger   otp.Service
	issuer      tokenIssuer
	dispatcher  notification.Dispatcher
	policy      PasswordPolicy
}

type ServiceDeps struct {
	UserRepo    userStore
	RefreshRepo refreshTokenStore
	OtpLedger   otp.Service
	TokenIssuer tokenIssuer
	Dispatcher  notification.Dispatcher
	Policy      PasswordPolicy
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:    deps.UserRepo,
		refreshRepo: deps.RefreshRepo,
		otpLedger:   deps.OtpLedger,
		issuer:      deps.TokenIssuer,
		dispatcher:  deps.Dispatcher,
		policy:      deps.Policy,
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.checkPasswordPolicy(req.Password); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrDuplicateEmail)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:         id.New(),
		Email:          email,
		Phone:          req.Phone,
		PasswordHash:   string(hash),
		Role:           domain.RoleUser,
		EmailConfirmed: false,
		Enable:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}
	code, err := s.otpLedger.Issue(ctx, u.UserID, domain.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	// A failed email never rolls back registration or the stored code;
	// the client recovers via the resend endpoint.
	if err := s.dispatcher.SendOtpEmail(ctx, u.Email, domain.PurposeEmailVerification, code); err != nil {
		slog.Warn("verification email not delivered", "user_id", u.UserID, "err", err)
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	// Unknown email and wrong password yield the same error so callers
	// cannot probe which accounts exist.
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", domain.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("login failed: %w", domain.ErrInvalidCredentials)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrInvalidCredentials)
	}
	if !u.EmailConfirmed {
		return nil, fmt.Errorf("email not verified: %w", domain.ErrEmailNotVerified)
	}
	return s.issuePair(ctx, u)
}

func (s *service) VerifyEmail(ctx context.Context, userID, code string) error {
	if err := s.otpLedger.Redeem(ctx, userID, domain.PurposeEmailVerification, code); err != nil {
		return collapseOtpError(err)
	}
	return s.userRepo.SetEmailVerified(ctx, userID)
}

// RequestPasswordReset always reports success so callers cannot probe which
// accounts exist.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		slog.Debug("password reset requested for unknown email")
		return nil
	}
	code, err := s.otpLedger.Issue(ctx, u.UserID, domain.PurposePasswordReset)
	if err != nil {
		return err
	}
	if err := s.dispatcher.SendOtpEmail(ctx, u.Email, domain.PurposePasswordReset, code); err != nil {
		slog.Warn("password reset email not delivered", "user_id", u.UserID, "err", err)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, userID, code, newPassword string) error {
	if err := s.checkPasswordPolicy(newPassword); err != nil {
		return err
	}
	if err := s.otpLedger.Redeem(ctx, userID, domain.PurposePasswordReset, code); err != nil {
		return collapseOtpError(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return err
	}
	// Every outstanding refresh token dies with the old password.
	return s.refreshRepo.RevokeAllForUser(ctx, userID)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.issuer.Validate(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != jwtinfra.TokenTypeRefresh {
		return nil, fmt.Errorf("not a refresh token: %w", domain.ErrInvalidToken)
	}
	rec, err := s.refreshRepo.Get(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("unknown refresh token: %w", domain.ErrInvalidToken)
	}
	if rec.Revoked {
		return nil, fmt.Errorf("refresh token revoked: %w", domain.ErrRevoked)
	}
	// Rotation: the conditional revoke decides the winner of a concurrent
	// refresh race; the loser sees ErrRevoked from the store.
	if err := s.refreshRepo.Revoke(ctx, claims.ID); err != nil {
		return nil, err
	}
	u, err := s.userRepo.Get(ctx, rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found for refresh token: %w", domain.ErrInvalidToken)
	}
	return s.issuePair(ctx, u)
}

func (s *service) ResendOtp(ctx context.Context, email string, purpose domain.OtpPurpose) error {
	if !domain.ValidOtpPurpose(purpose) {
		return fmt.Errorf("unknown otp purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		slog.Debug("otp resend requested for unknown email")
		return nil
	}
	code, err := s.otpLedger.Issue(ctx, u.UserID, purpose)
	if err != nil {
		return err
	}
	// Two-factor codes prefer the phone channel when one is on file.
	if purpose == domain.PurposeTwoFactor && u.Phone != nil {
		return s.dispatcher.SendOtpSMS(ctx, *u.Phone, purpose, code)
	}
	return s.dispatcher.SendOtpEmail(ctx, u.Email, purpose, code)
}

func (s *service) issuePair(ctx context.Context, u *domain.User) (*domain.TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(u.UserID, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, rec, err := s.issuer.IssueRefreshToken(u.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.refreshRepo.Put(ctx, rec); err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *service) checkPasswordPolicy(password string) error {
	if len(password) < s.policy.MinLength {
		return fmt.Errorf("password shorter than %d characters: %w", s.policy.MinLength, domain.ErrWeakPassword)
	}
	if s.policy.RequireMixed {
		var upper, lower, digit bool
		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		if !upper || !lower || !digit {
			return fmt.Errorf("password needs upper, lower and digit characters: %w", domain.ErrWeakPassword)
		}
	}
	return nil
}

// collapseOtpError folds the ledger's internal distinctions into the single
// caller-facing code error, keeping the lockout case separate.
func collapseOtpError(err error) error {
	if errors.Is(err, domain.ErrTooManyAttempts) {
		return err
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidOrExpiredCode)
	}
	return err
}
