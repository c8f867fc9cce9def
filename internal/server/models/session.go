package models

import "time"

// Session is an opaque bearer token with expiry. Logout and password
// rotation force ExpiresAt to now instead of deleting the row, so the
// record survives for audit.
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
}

// Active reports whether the session is valid at the given instant.
// Expiry is exclusive: a session is invalid at ExpiresAt exactly.
func (s *Session) Active(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
