// Package verifications persists the single-use email confirmation codes.
package verifications

import (
	"context"
	"time"

	"github.com/clouds-team/clouds/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, v *models.Verification) error
	GetByUserID(ctx context.Context, userID int64) (*models.Verification, error)
	GetByCode(ctx context.Context, code string) (*models.Verification, error)
	// SetCode installs a fresh code and expiry (verification resend).
	SetCode(ctx context.Context, userID int64, code string, expiresAt time.Time) error
	// Consume clears the code and expiry and sets the verified flag. The
	// code is single-use: after Consume it can never match again.
	Consume(ctx context.Context, userID int64) error
	Delete(ctx context.Context, userID int64) error
}
