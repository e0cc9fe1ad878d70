package handlers

import (
	"context"
	"time"

	"github.com/mdavison/bastion/internal/models"
	"github.com/mdavison/bastion/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, email, password, ip, userAgent string) (*services.AuthResponse, error)
	RegisterFunc     func(ctx context.Context, email, password, firstName, lastName string, isAdmin bool) (*services.UserResponse, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	LogoutFunc       func(ctx context.Context, userID string)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ip, userAgent)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Register(ctx context.Context, email, password, firstName, lastName string, isAdmin bool) (*services.UserResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, firstName, lastName, isAdmin)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Logout(ctx context.Context, userID string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, userID)
	}
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	RequestResetFunc  func(ctx context.Context, email string) error
	ResetPasswordFunc func(ctx context.Context, token, newPassword string) error
}

func (m *MockPasswordResetService) RequestReset(ctx context.Context, email string) error {
	if m.RequestResetFunc != nil {
		return m.RequestResetFunc(ctx, email)
	}
	return nil
}

func (m *MockPasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword)
	}
	return nil
}

// MockLedger implements services.FailureLedger for handler tests
type MockLedger struct {
	ListAllFunc func(ctx context.Context) ([]*models.FailedLogin, error)
}

func (m *MockLedger) Record(ctx context.Context, email, ip, userAgent string) error { return nil }

func (m *MockLedger) CountForEmail(ctx context.Context, email string, since time.Time) (int, error) {
	return 0, nil
}

func (m *MockLedger) CountForIP(ctx context.Context, ip string, since time.Time) (int, error) {
	return 0, nil
}

func (m *MockLedger) CountGlobal(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}

func (m *MockLedger) ListAll(ctx context.Context) ([]*models.FailedLogin, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return []*models.FailedLogin{}, nil
}
