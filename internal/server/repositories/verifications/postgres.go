package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clouds-team/clouds/internal/common"
	"github.com/clouds-team/clouds/internal/dbx"
	"github.com/clouds-team/clouds/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.Verification) error {
	query :=
		`INSERT INTO user_verifications (user_id, code, code_expires_at, verified)
		 VALUES ($1, $2, $3, $4)
		 `

	_, err := r.db.ExecContext(ctx, query, v.UserID, v.Code, v.CodeExpiresAt, v.Verified)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanVerification(row *sql.Row) (*models.Verification, error) {
	v := &models.Verification{}
	err := row.Scan(&v.UserID, &v.Code, &v.CodeExpiresAt, &v.Verified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID int64) (*models.Verification, error) {
	query := `SELECT user_id, code, code_expires_at, verified FROM user_verifications WHERE user_id = $1`
	return scanVerification(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*models.Verification, error) {
	query := `SELECT user_id, code, code_expires_at, verified FROM user_verifications WHERE code = $1`
	return scanVerification(r.db.QueryRowContext(ctx, query, code))
}

func (r *PostgresRepository) SetCode(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	query := `UPDATE user_verifications SET code = $2, code_expires_at = $3 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, code, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, userID int64) error {
	query := `UPDATE user_verifications SET code = NULL, code_expires_at = NULL, verified = true WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID int64) error {
	query := `DELETE FROM user_verifications WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
