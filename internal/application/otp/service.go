package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/identity-api/internal/domain"
)

// Service is the single-use code ledger. Issue replaces any outstanding code
// for the same (user, purpose); Redeem enforces expiry, the attempt limit, and
// exactly-one-winner consumption under concurrent redemption.
type Service interface {
	Issue(ctx context.Context, userID string, purpose domain.OtpPurpose) (string, error)
	Redeem(ctx context.Context, userID string, purpose domain.OtpPurpose, code string) error
}

type otpStore interface {
	Put(ctx context.Context, c *domain.OtpCode) error
	Get(ctx context.Context, userID, purpose string) (*domain.OtpCode, error)
	Consume(ctx context.Context, userID, purpose, code string) error
	MarkConsumed(ctx context.Context, userID, purpose string) error
	IncrementAttempts(ctx context.Context, userID, purpose string) (int, error)
}

type service struct {
	repo        otpStore
	codeLength  int
	ttl         time.Duration
	maxAttempts int
}

type ServiceDeps struct {
	OtpRepo     otpStore
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:        deps.OtpRepo,
		codeLength:  deps.CodeLength,
		ttl:         deps.TTL,
		maxAttempts: deps.MaxAttempts,
	}
}

func (s *service) Issue(ctx context.Context, userID string, purpose domain.OtpPurpose) (string, error) {
	if !domain.ValidOtpPurpose(purpose) {
		return "", fmt.Errorf("unknown otp purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	code, err := generateCode(s.codeLength)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	// The (user_id, purpose) key makes this Put overwrite any outstanding
	// code in a single write, so the old code can never redeem afterwards.
	c := &domain.OtpCode{
		UserID:    userID,
		Purpose:   string(purpose),
		Code:      code,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
		Consumed:  false,
		Attempts:  0,
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return "", err
	}
	return code, nil
}

func (s *service) Redeem(ctx context.Context, userID string, purpose domain.OtpPurpose, code string) error {
	rec, err := s.repo.Get(ctx, userID, string(purpose))
	if err != nil {
		return fmt.Errorf("no active code: %w", domain.ErrNotFound)
	}
	if rec.Consumed {
		return fmt.Errorf("code already used: %w", domain.ErrNotFound)
	}
	if rec.Attempts >= s.maxAttempts {
		return fmt.Errorf("attempt limit reached: %w", domain.ErrTooManyAttempts)
	}
	if rec.ExpiresAt < time.Now().Unix() {
		// Retire the record so the expired code cannot be retried.
		if err := s.repo.MarkConsumed(ctx, userID, string(purpose)); err != nil {
			slog.Warn("failed to retire expired otp code", "user_id", userID, "purpose", purpose, "err", err)
		}
		return fmt.Errorf("code expired: %w", domain.ErrInvalidOrExpiredCode)
	}
	if rec.Code != code {
		n, err := s.repo.IncrementAttempts(ctx, userID, string(purpose))
		if err != nil {
			return err
		}
		if n >= s.maxAttempts {
			return fmt.Errorf("attempt limit reached: %w", domain.ErrTooManyAttempts)
		}
		return fmt.Errorf("code mismatch: %w", domain.ErrInvalidOrExpiredCode)
	}
	// Conditional consume: exactly one concurrent redeemer wins.
	if err := s.repo.Consume(ctx, userID, string(purpose), code); err != nil {
		return err
	}
	return nil
}

// generateCode returns a cryptographically random numeric code of length n.
func generateCode(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp code: %w", err)
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}
