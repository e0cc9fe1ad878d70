package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mdavison/bastion/internal/auth"
	"github.com/mdavison/bastion/internal/metrics"
	"github.com/mdavison/bastion/internal/models"
	pkgauth "github.com/mdavison/bastion/pkg/auth"
	pkglogger "github.com/mdavison/bastion/pkg/logger"
)

// UserRepository defines the interface for account storage
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFailedAttempts(ctx context.Context, id string, failedAttempts int) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// AuthService orchestrates credential verification with adaptive friction,
// failed-login tracking and threshold alerting.
type AuthService struct {
	repo        UserRepository
	ledger      FailureLedger
	threats     *ThreatService
	friction    *FrictionService
	alerts      *AlertService
	breach      BreachChecker
	tm          *auth.TokenManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	metrics     *metrics.Metrics
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo UserRepository,
	ledger FailureLedger,
	threats *ThreatService,
	friction *FrictionService,
	alerts *AlertService,
	breach BreachChecker,
	tm *auth.TokenManager,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		repo:        repo,
		ledger:      ledger,
		threats:     threats,
		friction:    friction,
		alerts:      alerts,
		breach:      breach,
		tm:          tm,
		logger:      logger,
		auditLogger: auditLogger,
		metrics:     m,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user"`
}

// Login authenticates a user and returns tokens.
//
// The flow: account lookup, friction delay, credential check. The delay is
// computed from the account's failure counter as it stood before this
// attempt, plus penalties for any flagged threat axis, and is applied before
// the outcome is revealed regardless of whether the password turns out to be
// right or wrong.
//
// Unknown emails short-circuit with the same externally visible error as a
// wrong password but skip friction and the ledger entirely: there is no
// counter to read for an account that does not exist.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*AuthResponse, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: unknown account",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.String("ip", ip))
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				Email:         email,
				IPAddress:     ip,
				FailureReason: "unknown_account",
				Success:       false,
			})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	flags := s.threats.Evaluate(ctx, email, ip)
	delay := s.friction.ComputeDelay(user.FailedAttempts, flags)
	s.metrics.ObserveFrictionDelay(delay)
	s.friction.Apply(delay)

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.recordFailure(ctx, user, email, ip, userAgent, "incorrect_password")
		return nil, models.ErrUnauthorized
	}

	// Successful credential match: the failure counter resets immediately
	if user.FailedAttempts != 0 {
		if err := s.repo.UpdateFailedAttempts(ctx, user.ID, 0); err != nil {
			s.logger.Error("failed to reset failure counter",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
		}
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ip,
		Success:   true,
	})

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// recordFailure updates all failure state for a wrong-password attempt.
// Storage and delivery errors are logged but never abort the flow: the
// caller must always receive an authentication result even when telemetry
// fails to persist.
func (s *AuthService) recordFailure(ctx context.Context, user *models.User, email, ip, userAgent, reason string) {
	if err := s.repo.UpdateFailedAttempts(ctx, user.ID, user.FailedAttempts+1); err != nil {
		s.logger.Error("failed to persist failure counter",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	if err := s.ledger.Record(ctx, email, ip, userAgent); err != nil {
		s.logger.Error("failed to record failed login",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
	}

	s.metrics.IncrementFailedLogins()
	s.alerts.MaybeAlert(ctx, ip, email)

	s.logger.Warn("login failure",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("ip", ip),
		slog.String("user_agent", userAgent),
		slog.String("reason", reason))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		UserID:        user.ID,
		Email:         email,
		IPAddress:     ip,
		UserAgent:     userAgent,
		FailureReason: reason,
		Success:       false,
	})
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string, isAdmin bool) (*UserResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("first and last name are required")
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, models.ErrWeakPassword
	}

	breached, err := s.breach.IsBreached(ctx, password)
	if err != nil {
		// The breach lookup failing means the password cannot be vouched
		// for; reject rather than accept unchecked.
		s.logger.Error("breached password check unavailable", slog.Any("error", err))
		return nil, models.ErrBreachedPassword
	}
	if breached {
		return nil, models.ErrBreachedPassword
	}

	_, err = s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    firstName,
		LastName:     lastName,
		IsAdmin:      isAdmin,
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		s.logger.Error("failed to create user", slog.Any("error", err))
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "user_registered",
		UserID:    createdUser.ID,
		Success:   true,
	})

	return userModelToResponse(createdUser), nil
}

// RefreshToken generates a new token pair from a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*AuthResponse, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != "refresh" {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found for token refresh", slog.String("user_id", claims.UserID))
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	newRefreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// Logout records the logout event. Session tokens are stateless; the client
// discards them and the short access-token expiry bounds the remaining
// validity.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	s.logger.Info("user logged out", slog.String("user_id", userID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "logout",
		UserID:    userID,
		Success:   true,
	})
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
