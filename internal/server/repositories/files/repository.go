// Package files persists holder-scoped blob metadata rows.
package files

import (
	"context"

	"github.com/clouds-team/clouds/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, f *models.File) (*models.File, error)
	GetByID(ctx context.Context, id int64) (*models.File, error)
	UpdateStorageKey(ctx context.Context, id int64, key string) error
	ListByUserPage(ctx context.Context, userID int64, offset, limit int) ([]models.File, error)
	ListAllByUser(ctx context.Context, userID int64) ([]models.File, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	// CountByStorageKey counts metadata rows referencing one ciphertext
	// object; transfers share storage keys, so the object may only be
	// deleted when this drops to zero.
	CountByStorageKey(ctx context.Context, key string) (int, error)
	Delete(ctx context.Context, id int64) error
}
