// Package users persists accounts.
package users

import (
	"context"
	"time"

	"github.com/clouds-team/clouds/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	MarkVerified(ctx context.Context, id int64) error
	UpdateLoginStamp(ctx context.Context, id int64, ip string, at time.Time) error
	AddUsedSpace(ctx context.Context, id int64, delta int64) error
	Delete(ctx context.Context, id int64) error
}
