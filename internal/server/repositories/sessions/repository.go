// Package sessions persists opaque bearer sessions.
package sessions

import (
	"context"
	"time"

	"github.com/clouds-team/clouds/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	// Expire invalidates by forcing expires_at to now; the row stays for
	// audit. Expiring an unknown token is not an error.
	Expire(ctx context.Context, token string, now time.Time) error
	ExpireAllForUser(ctx context.Context, userID int64, now time.Time) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}
