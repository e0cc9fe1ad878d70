package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdavison/bastion/internal/models"
	pkglogger "github.com/mdavison/bastion/pkg/logger"
)

func newResetFixture(t *testing.T) (*PasswordResetService, *MockUserRepository, *MockEmailService, *MockBreachChecker) {
	t.Helper()
	logger := discardLogger()
	repo := &MockUserRepository{}
	email := &MockEmailService{}
	breach := &MockBreachChecker{}
	svc := NewPasswordResetService(repo, email, breach, "test-secret-key-for-units", time.Hour, "https://app.example.com", logger, pkglogger.NewAuditLogger(logger))
	return svc, repo, email, breach
}

func resetTokenFromEmail(t *testing.T, sent SentEmail) string {
	t.Helper()
	_, after, found := strings.Cut(sent.TextBody, "token=")
	require.True(t, found, "reset email should carry a token link")
	return strings.TrimSpace(after)
}

func TestRequestReset(t *testing.T) {
	t.Run("sends email with token link", func(t *testing.T) {
		svc, repo, email, _ := newResetFixture(t)

		user := NewTestUser("user-1", "alice@example.com", 0)
		user.PasswordHash = "stored-hash"
		repo.GetByEmailFunc = func(ctx context.Context, e string) (*models.User, error) {
			assert.Equal(t, "alice@example.com", e)
			return user, nil
		}

		err := svc.RequestReset(context.Background(), "  Alice@Example.COM ")

		require.NoError(t, err)
		require.Equal(t, 1, email.SentCount())
		assert.Equal(t, "Password Reset Request", email.Sent[0].Subject)
		assert.Equal(t, []string{"alice@example.com"}, email.Sent[0].Recipients)
		assert.Contains(t, email.Sent[0].TextBody, "https://app.example.com/reset?token=")
	})

	t.Run("unknown account is silently accepted", func(t *testing.T) {
		svc, _, email, _ := newResetFixture(t)

		err := svc.RequestReset(context.Background(), "ghost@example.com")

		require.NoError(t, err)
		assert.Zero(t, email.SentCount())
	})
}

func TestResetPassword(t *testing.T) {
	setup := func(t *testing.T) (*PasswordResetService, *MockUserRepository, *MockBreachChecker, string, *models.User) {
		svc, repo, email, breach := newResetFixture(t)

		user := NewTestUser("user-1", "alice@example.com", 0)
		user.PasswordHash = "stored-hash"
		repo.GetByEmailFunc = func(ctx context.Context, e string) (*models.User, error) {
			return user, nil
		}

		require.NoError(t, svc.RequestReset(context.Background(), "alice@example.com"))
		token := resetTokenFromEmail(t, email.Sent[0])
		return svc, repo, breach, token, user
	}

	t.Run("valid token updates the password", func(t *testing.T) {
		svc, repo, _, token, _ := setup(t)

		var updatedID string
		repo.UpdatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
			updatedID = id
			return nil
		}

		err := svc.ResetPassword(context.Background(), token, "NewValid1!")

		require.NoError(t, err)
		assert.Equal(t, "user-1", updatedID)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		svc, _, _, _, _ := setup(t)

		err := svc.ResetPassword(context.Background(), "not-a-token", "NewValid1!")

		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("token invalidated by password change", func(t *testing.T) {
		svc, _, _, token, user := setup(t)

		// Password changed after the token was minted
		user.PasswordHash = "different-hash"

		err := svc.ResetPassword(context.Background(), token, "NewValid1!")

		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("weak replacement rejected", func(t *testing.T) {
		svc, _, _, token, _ := setup(t)

		err := svc.ResetPassword(context.Background(), token, "weak")

		assert.ErrorIs(t, err, models.ErrWeakPassword)
	})

	t.Run("breached replacement rejected", func(t *testing.T) {
		svc, _, breach, token, _ := setup(t)
		breach.Breached = true

		err := svc.ResetPassword(context.Background(), token, "NewValid1!")

		assert.ErrorIs(t, err, models.ErrBreachedPassword)
	})
}
