// Package attempts persists the append-only login attempt ledger.
// Rows are never updated: block state is derived by scanning the log.
package attempts

import (
	"context"
	"time"

	"github.com/clouds-team/clouds/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.LoginAttempt) error
	CountSinceByIP(ctx context.Context, ip string, since time.Time) (int, error)
	CountSinceByEmail(ctx context.Context, email string, since time.Time) (int, error)
	HasActiveBlockByIP(ctx context.Context, ip string, now time.Time) (bool, error)
	HasActiveBlockByEmail(ctx context.Context, email string, now time.Time) (bool, error)
}
