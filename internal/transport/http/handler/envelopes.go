package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/identity-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TokenEnvelope wraps login/refresh responses.
type TokenEnvelope struct {
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         *domain.User `json:"user,omitempty"`
	Error        string       `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP status codes.
// The error text written to the client is the sentinel's message, not the
// wrapped detail, so internals never leak into responses.
func httpError(w http.ResponseWriter, err error) {
	for _, m := range errStatusMap {
		if errors.Is(err, m.sentinel) {
			writeError(w, m.status, m.sentinel.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

var errStatusMap = []struct {
	sentinel error
	status   int
}{
	{domain.ErrDuplicateEmail, http.StatusConflict},
	{domain.ErrWeakPassword, http.StatusUnprocessableEntity},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrEmailNotVerified, http.StatusForbidden},
	{domain.ErrTooManyAttempts, http.StatusTooManyRequests},
	{domain.ErrInvalidOrExpiredCode, http.StatusBadRequest},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrRevoked, http.StatusUnauthorized},
	{domain.ErrDeliveryFailed, http.StatusBadGateway},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrNotFound, http.StatusNotFound},
}
