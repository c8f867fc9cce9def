// Package fileowners persists the lineage origin of file rows.
package fileowners

import (
	"context"

	"github.com/clouds-team/clouds/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, o *models.FileOwner) error
	GetByFileID(ctx context.Context, fileID int64) (*models.FileOwner, error)
	DeleteByFileID(ctx context.Context, fileID int64) error
}
