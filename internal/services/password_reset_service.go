package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mdavison/bastion/internal/models"
	pkgauth "github.com/mdavison/bastion/pkg/auth"
	pkglogger "github.com/mdavison/bastion/pkg/logger"
)

// resetClaims are the JWT claims of a password reset token. Fingerprint is
// derived from the password hash current at issue time, so changing the
// password invalidates every outstanding token for the account.
type resetClaims struct {
	Email       string `json:"email"`
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

// PasswordResetService issues and redeems signed password reset tokens
type PasswordResetService struct {
	repo        UserRepository
	email       EmailService
	breach      BreachChecker
	secret      []byte
	expiry      time.Duration
	baseURL     string
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewPasswordResetService(repo UserRepository, email EmailService, breach BreachChecker, secret string, expiry time.Duration, baseURL string, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *PasswordResetService {
	return &PasswordResetService{
		repo:        repo,
		email:       email,
		breach:      breach,
		secret:      []byte(secret),
		expiry:      expiry,
		baseURL:     baseURL,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RequestReset sends a reset email if the account exists. The caller always
// responds generically so the endpoint cannot be used to probe for accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown account",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		return fmt.Errorf("failed to look up account for reset: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset?token=%s", s.baseURL, token)
	textBody := fmt.Sprintf("To reset your password, click the following link:\n%s", resetURL)
	htmlBody := fmt.Sprintf("<p>To reset your password, click the following link:</p><p><a href='%s'>%s</a></p>", resetURL, resetURL)

	if err := s.email.Send(ctx, "Password Reset Request", []string{user.Email}, textBody, htmlBody); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.logger.Info("password reset email sent", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword redeems a reset token and sets a new password
func (s *PasswordResetService) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		s.logger.Info("invalid or expired reset token", slog.Any("error", err))
		return models.ErrInvalidToken
	}

	user, err := s.repo.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("reset token refers to unknown account")
			return models.ErrInvalidToken
		}
		return fmt.Errorf("failed to look up account for reset: %w", err)
	}

	// Token minted before a password change no longer matches
	if claims.Fingerprint != hashFingerprint(user.PasswordHash) {
		s.logger.Info("reset token invalidated by password change", slog.String("user_id", user.ID))
		return models.ErrInvalidToken
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return models.ErrWeakPassword
	}

	breached, err := s.breach.IsBreached(ctx, newPassword)
	if err != nil {
		s.logger.Error("breached password check unavailable", slog.Any("error", err))
		return models.ErrBreachedPassword
	}
	if breached {
		return models.ErrBreachedPassword
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		s.auditLogger.LogPasswordChange(user.ID, "", false)
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.auditLogger.LogPasswordChange(user.ID, "", true)
	return nil
}

func (s *PasswordResetService) generateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &resetClaims{
		Email:       user.Email,
		Fingerprint: hashFingerprint(user.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *PasswordResetService) parseToken(tokenString string) (*resetClaims, error) {
	claims := &resetClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, models.ErrInvalidToken
	}

	return claims, nil
}

func hashFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return fmt.Sprintf("%x", sum[:8])
}
