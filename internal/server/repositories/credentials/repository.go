// Package credentials persists the per-user cryptographic material.
package credentials

import (
	"context"

	"github.com/clouds-team/clouds/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Credential) error
	GetByUserID(ctx context.Context, userID int64) (*models.Credential, error)
	// Replace swaps the whole record in one statement; partial mutation
	// of credential fields is not supported by design.
	Replace(ctx context.Context, c *models.Credential) error
	Delete(ctx context.Context, userID int64) error
}
