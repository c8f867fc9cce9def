package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clouds-team/clouds/internal/server/models"
	"github.com/clouds-team/clouds/internal/server/repositories/repomanager"
)

const (
	// attemptLimit failed attempts within attemptWindow trigger a block
	// lasting blockDuration. Blocks are appended to the attempt ledger,
	// never written in place.
	attemptLimit  = 15
	attemptWindow = time.Hour
	blockDuration = 30 * time.Minute
)

// RateLimiter throttles login attempts per client IP and per account
// email. All state lives in the append-only attempt ledger; whether a
// caller is blocked is always recomputed from the log.
type RateLimiter struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewRateLimiter(db *sql.DB, rm repomanager.RepositoryManager) *RateLimiter {
	return &RateLimiter{db: db, repomanager: rm, now: time.Now}
}

// IsBlocked reports whether an unexpired block row exists for the IP or,
// when email is non-empty, for the email. An empty email never skips the
// IP check.
func (r *RateLimiter) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	repo := r.repomanager.Attempts(r.db)
	now := r.now()

	blocked, err := repo.HasActiveBlockByIP(ctx, ip, now)
	if err != nil {
		return false, fmt.Errorf("error checking ip block: %w", err)
	}
	if blocked {
		return true, nil
	}

	if email == "" {
		return false, nil
	}

	blocked, err = repo.HasActiveBlockByEmail(ctx, email, now)
	if err != nil {
		return false, fmt.Errorf("error checking email block: %w", err)
	}
	return blocked, nil
}

// RecordFailedAttempt appends a failed attempt and, when either dimension
// reaches the limit inside the rolling window, appends a block row for
// that dimension.
func (r *RateLimiter) RecordFailedAttempt(ctx context.Context, email, ip string) error {
	repo := r.repomanager.Attempts(r.db)
	now := r.now()

	attempt := &models.LoginAttempt{IPAddress: ip, AttemptTime: now}
	if email != "" {
		attempt.Email = &email
	}
	if err := repo.Create(ctx, attempt); err != nil {
		return fmt.Errorf("error recording attempt: %w", err)
	}

	since := now.Add(-attemptWindow)

	count, err := repo.CountSinceByIP(ctx, ip, since)
	if err != nil {
		return fmt.Errorf("error counting ip attempts: %w", err)
	}
	if count >= attemptLimit {
		return r.appendBlock(ctx, email, ip, now)
	}

	if email == "" {
		return nil
	}

	count, err = repo.CountSinceByEmail(ctx, email, since)
	if err != nil {
		return fmt.Errorf("error counting email attempts: %w", err)
	}
	if count >= attemptLimit {
		return r.appendBlock(ctx, email, ip, now)
	}

	return nil
}

func (r *RateLimiter) appendBlock(ctx context.Context, email, ip string, now time.Time) error {
	expires := now.Add(blockDuration)
	block := &models.LoginAttempt{
		IPAddress:      ip,
		AttemptTime:    now,
		Blocked:        true,
		BlockExpiresAt: &expires,
	}
	if email != "" {
		block.Email = &email
	}
	if err := r.repomanager.Attempts(r.db).Create(ctx, block); err != nil {
		return fmt.Errorf("error recording block: %w", err)
	}
	return nil
}
