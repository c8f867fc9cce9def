// Package filekeys persists holder-scoped wrapped symmetric keys.
package filekeys

import (
	"context"

	"github.com/clouds-team/clouds/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, k *models.FileKey) error
	GetByFileID(ctx context.Context, fileID int64) (*models.FileKey, error)
	DeleteByFileID(ctx context.Context, fileID int64) error
}
