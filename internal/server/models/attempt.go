package models

import "time"

// LoginAttempt is an immutable row in the append-only attempt ledger.
// Blocks are not updates: a block is itself a new row with Blocked=true
// and a future BlockExpiresAt, so block state is always derived by
// scanning the log.
type LoginAttempt struct {
	ID             int64
	IPAddress      string
	Email          *string
	AttemptTime    time.Time
	Blocked        bool
	BlockExpiresAt *time.Time
}
