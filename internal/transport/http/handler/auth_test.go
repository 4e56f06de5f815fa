package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/identity-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if p := args.Get(0); p != nil {
		return p.(*domain.TokenPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthService) VerifyEmail(ctx context.Context, userID, code string) error {
	return m.Called(ctx, userID, code).Error(0)
}

func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, userID, code, newPassword string) error {
	return m.Called(ctx, userID, code, newPassword).Error(0)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if p := args.Get(0); p != nil {
		return p.(*domain.TokenPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthService) ResendOtp(ctx context.Context, email string, purpose domain.OtpPurpose) error {
	return m.Called(ctx, email, purpose).Error(0)
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRegister_Created(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Register", mock.Anything, mock.AnythingOfType("domain.RegisterRequest")).
		Return(&domain.User{UserID: "u1", Email: "ada@example.com"}, nil)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Register, map[string]string{
		"email":    "ada@example.com",
		"password": "Sup3rSecret",
	})

	assert.Equal(t, http.StatusCreated, rr.Code)
	var env TokenEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NotNil(t, env.User)
	assert.Equal(t, "u1", env.User.UserID)
	svc.AssertExpectations(t)
}

func TestRegister_ClientSuppliedRoleIgnored(t *testing.T) {
	svc := new(mockAuthService)
	var got domain.RegisterRequest
	svc.On("Register", mock.Anything, mock.AnythingOfType("domain.RegisterRequest")).
		Run(func(args mock.Arguments) { got = args.Get(1).(domain.RegisterRequest) }).
		Return(&domain.User{UserID: "u1", Email: "ada@example.com", Role: domain.RoleUser}, nil)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Register, map[string]string{
		"email":    "ada@example.com",
		"password": "Sup3rSecret",
		"role":     "admin",
	})

	assert.Equal(t, http.StatusCreated, rr.Code)
	// The request type carries no role, so the field is dropped on decode.
	assert.Equal(t, domain.RegisterRequest{Email: "ada@example.com", Password: "Sup3rSecret"}, got)
	var env TokenEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NotNil(t, env.User)
	assert.Equal(t, domain.RoleUser, env.User.Role)
}

func TestRegister_InvalidBody(t *testing.T) {
	svc := new(mockAuthService)
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.Register).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Register")
}

func TestRegister_ValidationFailure(t *testing.T) {
	svc := new(mockAuthService)
	h := NewAuthHandler(svc)

	rr := postJSON(t, h.Register, map[string]string{"email": "not-an-email", "password": "x"})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertNotCalled(t, "Register")
}

func TestRegister_DuplicateEmail_Conflict(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrDuplicateEmail)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Register, map[string]string{
		"email":    "ada@example.com",
		"password": "Sup3rSecret",
	})

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestLogin_ReturnsTokenPair(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Login", mock.Anything, "ada@example.com", "Sup3rSecret").
		Return(&domain.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Login, map[string]string{
		"email":    "ada@example.com",
		"password": "Sup3rSecret",
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	var env TokenEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "acc", env.AccessToken)
	assert.Equal(t, "ref", env.RefreshToken)
}

func TestLogin_BadCredentials_Unauthorized(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Login", mock.Anything, "ada@example.com", "wrong").
		Return(nil, domain.ErrInvalidCredentials)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Login, map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, domain.ErrInvalidCredentials.Error(), env.Error)
}

func TestLogin_UnverifiedEmail_Forbidden(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrEmailNotVerified)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Login, map[string]string{
		"email":    "ada@example.com",
		"password": "Sup3rSecret",
	})

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestVerifyEmail_BadCode(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("VerifyEmail", mock.Anything, "u1", "000000").
		Return(domain.ErrInvalidOrExpiredCode)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.VerifyEmail, map[string]string{"user_id": "u1", "code": "000000"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVerifyEmail_TooManyAttempts(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("VerifyEmail", mock.Anything, "u1", "123456").
		Return(domain.ErrTooManyAttempts)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.VerifyEmail, map[string]string{"user_id": "u1", "code": "123456"})

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRequestPasswordReset_AlwaysOK(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("RequestPasswordReset", mock.Anything, "ghost@example.com").Return(nil)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.RequestPasswordReset, map[string]string{"email": "ghost@example.com"})

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRefresh_RevokedToken_Unauthorized(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Refresh", mock.Anything, "stale").Return(nil, domain.ErrRevoked)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Refresh, map[string]string{"refresh_token": "stale"})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestResendOtp_DeliveryFailure_BadGateway(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("ResendOtp", mock.Anything, "ada@example.com", domain.PurposeEmailVerification).
		Return(domain.ErrDeliveryFailed)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.ResendOtp, map[string]string{
		"email":   "ada@example.com",
		"purpose": "email_verification",
	})

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
