package fileowners

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

func (r *PostgresRepository) Create(ctx context.Context, o *models.FileOwner) error {
	query :=
		`INSERT INTO file_owners (file_id, owner_user_id)
		 VALUES ($1, $2)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, o.FileID, o.OwnerUserID).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByFileID(ctx context.Context, fileID int64) (*models.FileOwner, error) {
	query := `SELECT id, file_id, owner_user_id FROM file_owners WHERE file_id = $1`

	o := &models.FileOwner{}
	err := r.db.QueryRowContext(ctx, query, fileID).Scan(&o.ID, &o.FileID, &o.OwnerUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) DeleteByFileID(ctx context.Context, fileID int64) error {
	query := `DELETE FROM file_owners WHERE file_id = $1`
	if _, err := r.db.ExecContext(ctx, query, fileID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
