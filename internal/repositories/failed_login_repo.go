package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mdavison/bastion/internal/database"
	"github.com/mdavison/bastion/internal/models"
)

// FailedLoginRepository is the Postgres-backed ledger of failed login
// attempts. Rows are append-only; the only delete path is the retention
// purge, which never reaches inside the threat window.
type FailedLoginRepository struct {
	pool *pgxpool.Pool
}

func NewFailedLoginRepository(db *database.DB) *FailedLoginRepository {
	return &FailedLoginRepository{pool: db.Pool}
}

// Record appends a failed login attempt. created_at is server-assigned.
func (r *FailedLoginRepository) Record(ctx context.Context, email, ip, userAgent string) error {
	query := `
		INSERT INTO failed_logins (id, email, ip, user_agent)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, uuid.NewString(), email, ip, userAgent)
	if err != nil {
		return fmt.Errorf("failed to record failed login: %w", database.MapPostgresError(err))
	}
	return nil
}

// CountForEmail returns the number of failed attempts for an email since the given time
func (r *FailedLoginRepository) CountForEmail(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM failed_logins
		WHERE email = $1 AND created_at >= $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, email, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// CountForIP returns the number of failed attempts from an IP since the given time
func (r *FailedLoginRepository) CountForIP(ctx context.Context, ip string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM failed_logins
		WHERE ip = $1 AND created_at >= $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, ip, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// CountGlobal returns the number of failed attempts across all accounts since the given time
func (r *FailedLoginRepository) CountGlobal(ctx context.Context, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM failed_logins
		WHERE created_at >= $1
	`

	var count int
	err := r.pool.QueryRow(ctx, query, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// ListAll returns a snapshot of every recorded failed login for operator review
func (r *FailedLoginRepository) ListAll(ctx context.Context) ([]*models.FailedLogin, error) {
	query := `
		SELECT id, email, ip, user_agent, created_at FROM failed_logins
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	records := make([]*models.FailedLogin, 0)
	for rows.Next() {
		var fl models.FailedLogin
		if err := rows.Scan(&fl.ID, &fl.Email, &fl.IP, &fl.UserAgent, &fl.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan failed login: %w", err)
		}
		records = append(records, &fl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// DeleteOlderThan removes ledger rows created before the cutoff. Used by the
// retention cleanup task only.
func (r *FailedLoginRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM failed_logins WHERE created_at < $1`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
