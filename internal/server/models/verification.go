package models

import "time"

// Verification is the single-use email confirmation state, 1:1 with User.
// Consuming the code clears Code and CodeExpiresAt and sets Verified.
type Verification struct {
	UserID        int64
	Code          *string
	CodeExpiresAt *time.Time
	Verified      bool
}
