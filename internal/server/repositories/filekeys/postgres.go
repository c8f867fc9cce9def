package filekeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, k *models.FileKey) error {
	query :=
		`INSERT INTO file_keys (file_id, user_id, wrapped_key, file_iv, file_tag, key_iv, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		k.FileID, k.UserID, k.WrappedKey, k.FileIV, k.FileTag, k.KeyIV, k.CreatedAt).Scan(&k.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByFileID(ctx context.Context, fileID int64) (*models.FileKey, error) {
	query :=
		`SELECT id, file_id, user_id, wrapped_key, file_iv, file_tag, key_iv, created_at
		 FROM file_keys WHERE file_id = $1
		 `

	k := &models.FileKey{}
	err := r.db.QueryRowContext(ctx, query, fileID).Scan(
		&k.ID, &k.FileID, &k.UserID, &k.WrappedKey, &k.FileIV, &k.FileTag, &k.KeyIV, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return k, nil
}

func (r *PostgresRepository) DeleteByFileID(ctx context.Context, fileID int64) error {
	query := `DELETE FROM file_keys WHERE file_id = $1`
	if _, err := r.db.ExecContext(ctx, query, fileID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
