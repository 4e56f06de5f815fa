package jwtinfra

import (
	"errors"
	"testing"
	"time"

	"github.com/identity-api/internal/config"
	"github.com/identity-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "test-secret-key-at-least-32-bytes!!",
		JWTIssuer:       "identity-api",
		JWTAudience:     "identity-api-clients",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(testConfig())
	require.NoError(t, err)
	return p
}

func TestNewProvider_EmptySecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = ""
	_, err := NewProvider(cfg)
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	p := newTestProvider(t)

	token, err := p.IssueAccessToken("u1", domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := p.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "identity-api", claims.Issuer)
}

func TestRefreshToken_CarriesJTIAndRecordMatches(t *testing.T) {
	p := newTestProvider(t)

	token, rec, err := p.IssueRefreshToken("u1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "u1", rec.UserID)
	assert.False(t, rec.Revoked)

	claims, err := p.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, rec.TokenID, claims.ID)
	assert.Equal(t, "u1", claims.Subject)
}

func TestValidate_ExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTL = -time.Minute // already expired at issue time
	p, err := NewProvider(cfg)
	require.NoError(t, err)

	token, err := p.IssueAccessToken("u1", domain.RoleUser)
	require.NoError(t, err)

	_, err = p.Validate(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidate_WrongSecret(t *testing.T) {
	p := newTestProvider(t)
	token, err := p.IssueAccessToken("u1", domain.RoleUser)
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.JWTSecret = "a-completely-different-secret-key!!!"
	other, err := NewProvider(otherCfg)
	require.NoError(t, err)

	_, err = other.Validate(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestValidate_IssuerMismatch(t *testing.T) {
	p := newTestProvider(t)
	token, err := p.IssueAccessToken("u1", domain.RoleUser)
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.JWTIssuer = "some-other-service"
	other, err := NewProvider(otherCfg)
	require.NoError(t, err)

	_, err = other.Validate(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestValidate_Malformed(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.Validate("not-a-jwt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
	assert.Contains(t, err.Error(), "malformed")
}
