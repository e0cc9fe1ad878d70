package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdavison/bastion/internal/models"
	"github.com/mdavison/bastion/internal/services"
	pkghttp "github.com/mdavison/bastion/pkg/http"
)

func newAuthHandler(svc AuthServiceInterface, resets PasswordResetServiceInterface) *AuthHandler {
	return NewAuthHandler(svc, resets, &pkghttp.IPConfig{})
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestLoginHandler(t *testing.T) {
	t.Run("success returns token pair", func(t *testing.T) {
		svc := &MockAuthService{
			LoginFunc: func(ctx context.Context, email, password, ip, userAgent string) (*services.AuthResponse, error) {
				assert.Equal(t, "alice@example.com", email)
				assert.Equal(t, "10.0.0.1", ip)
				assert.Equal(t, "test-agent", userAgent)
				return &services.AuthResponse{
					AccessToken:  "access",
					RefreshToken: "refresh",
					User:         &services.UserResponse{ID: "user-1", Email: email},
				}, nil
			},
		}
		h := newAuthHandler(svc, &MockPasswordResetService{})

		rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "alice@example.com", Password: "Correct1!"})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp services.AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "access", resp.AccessToken)
	})

	t.Run("bad credentials map to 401", func(t *testing.T) {
		h := newAuthHandler(&MockAuthService{}, &MockPasswordResetService{})

		rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "alice@example.com", Password: "wrong"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("service error maps to 500", func(t *testing.T) {
		svc := &MockAuthService{
			LoginFunc: func(ctx context.Context, email, password, ip, userAgent string) (*services.AuthResponse, error) {
				return nil, models.ErrInternalServer
			},
		}
		h := newAuthHandler(svc, &MockPasswordResetService{})

		rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "alice@example.com", Password: "whatever"})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		h := newAuthHandler(&MockAuthService{}, &MockPasswordResetService{})

		rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "alice@example.com"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		h := newAuthHandler(&MockAuthService{}, &MockPasswordResetService{})

		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRegisterHandler(t *testing.T) {
	validBody := RegisterRequest{
		Email:     "bob@example.com",
		Password:  "Valid1!pass",
		FirstName: "Bob",
		LastName:  "Jones",
	}

	t.Run("created", func(t *testing.T) {
		svc := &MockAuthService{
			RegisterFunc: func(ctx context.Context, email, password, firstName, lastName string, isAdmin bool) (*services.UserResponse, error) {
				return &services.UserResponse{ID: "user-2", Email: email}, nil
			},
		}
		h := newAuthHandler(svc, &MockPasswordResetService{})

		rec := postJSON(t, h.Register, "/auth/register", validBody)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("weak password maps to 400", func(t *testing.T) {
		svc := &MockAuthService{
			RegisterFunc: func(ctx context.Context, email, password, firstName, lastName string, isAdmin bool) (*services.UserResponse, error) {
				return nil, models.ErrWeakPassword
			},
		}
		h := newAuthHandler(svc, &MockPasswordResetService{})

		rec := postJSON(t, h.Register, "/auth/register", validBody)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate maps to 409", func(t *testing.T) {
		svc := &MockAuthService{
			RegisterFunc: func(ctx context.Context, email, password, firstName, lastName string, isAdmin bool) (*services.UserResponse, error) {
				return nil, models.ErrConflict
			},
		}
		h := newAuthHandler(svc, &MockPasswordResetService{})

		rec := postJSON(t, h.Register, "/auth/register", validBody)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestForgotPasswordHandler(t *testing.T) {
	t.Run("always accepted", func(t *testing.T) {
		h := newAuthHandler(&MockAuthService{}, &MockPasswordResetService{})

		rec := postJSON(t, h.ForgotPassword, "/auth/forgot", ForgotPasswordRequest{Email: "ghost@example.com"})

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("service error maps to 500", func(t *testing.T) {
		resets := &MockPasswordResetService{
			RequestResetFunc: func(ctx context.Context, email string) error {
				return errors.New("ses unavailable")
			},
		}
		h := newAuthHandler(&MockAuthService{}, resets)

		rec := postJSON(t, h.ForgotPassword, "/auth/forgot", ForgotPasswordRequest{Email: "alice@example.com"})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestResetPasswordHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newAuthHandler(&MockAuthService{}, &MockPasswordResetService{})

		rec := postJSON(t, h.ResetPassword, "/auth/reset", ResetPasswordRequest{Token: "tok", Password: "NewValid1!"})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid token maps to 401", func(t *testing.T) {
		resets := &MockPasswordResetService{
			ResetPasswordFunc: func(ctx context.Context, token, newPassword string) error {
				return models.ErrInvalidToken
			},
		}
		h := newAuthHandler(&MockAuthService{}, resets)

		rec := postJSON(t, h.ResetPassword, "/auth/reset", ResetPasswordRequest{Token: "bad", Password: "NewValid1!"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
