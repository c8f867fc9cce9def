package attempts

import (
	"context"
	"fmt"
	"time"

	"github.com/clouds-team/clouds/internal/dbx"
	"github.com/clouds-team/clouds/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.LoginAttempt) error {
	query :=
		`INSERT INTO login_attempts (ip_address, email, attempt_time, blocked, block_expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	_, err := r.db.ExecContext(ctx, query,
		a.IPAddress, a.Email, a.AttemptTime, a.Blocked, a.BlockExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountSinceByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM login_attempts WHERE ip_address = $1 AND attempt_time >= $2`

	var n int
	if err := r.db.QueryRowContext(ctx, query, ip, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountSinceByEmail(ctx context.Context, email string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM login_attempts WHERE email = $1 AND attempt_time >= $2`

	var n int
	if err := r.db.QueryRowContext(ctx, query, email, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) HasActiveBlockByIP(ctx context.Context, ip string, now time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM login_attempts WHERE ip_address = $1 AND blocked AND block_expires_at > $2)`

	var blocked bool
	if err := r.db.QueryRowContext(ctx, query, ip, now).Scan(&blocked); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return blocked, nil
}

func (r *PostgresRepository) HasActiveBlockByEmail(ctx context.Context, email string, now time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM login_attempts WHERE email = $1 AND blocked AND block_expires_at > $2)`

	var blocked bool
	if err := r.db.QueryRowContext(ctx, query, email, now).Scan(&blocked); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return blocked, nil
}
