package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/identity-api/internal/config"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/pkg/id"
)

// Token type claim values. Refresh tokens are never accepted where an access
// token is expected, and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims holds the JWT payload fields.
type Claims struct {
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with issuer/audience validation.
type Provider struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return &Provider{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

// IssueAccessToken signs a short-lived token carrying the user's role.
func (p *Provider) IssueAccessToken(userID, role string) (string, error) {
	return p.sign(userID, role, TokenTypeAccess, "", p.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token and returns the
// revocation-set record the caller must persist. The record's jti is the only
// server-side state the token needs.
func (p *Provider) IssueRefreshToken(userID string) (string, *domain.RefreshTokenRecord, error) {
	now := time.Now().UTC()
	rec := &domain.RefreshTokenRecord{
		TokenID:   id.New(),
		UserID:    userID,
		Revoked:   false,
		ExpiresAt: now.Add(p.refreshTTL).Unix(),
		CreatedAt: now,
	}
	token, err := p.sign(userID, "", TokenTypeRefresh, rec.TokenID, p.refreshTTL)
	if err != nil {
		return "", nil, err
	}
	return token, rec, nil
}

func (p *Provider) sign(userID, role, tokenType, jti string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Validate parses and verifies a token. All failures wrap domain.ErrInvalidToken;
// the message distinguishes malformed / bad-signature / expired / claim-mismatch
// for logging, but callers should not branch on anything finer than the sentinel.
func (p *Provider) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("malformed token: %w", domain.ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, fmt.Errorf("signature invalid: %w", domain.ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("token expired: %w", domain.ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return nil, fmt.Errorf("issuer or audience mismatch: %w", domain.ErrInvalidToken)
	default:
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidToken)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrInvalidToken)
	}
	return claims, nil
}
