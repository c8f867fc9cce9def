// Package models holds the persistence-level structs shared by
// repositories and services.
package models

import "time"

// User is an account. Deleting one cascades over sessions, credentials,
// verification, and file rows; there is no soft delete.
type User struct {
	ID               int64
	Username         string
	Name             string
	Surname          string
	Email            string
	RegistrationDate time.Time
	LastLoginDate    *time.Time
	IsVerified       bool
	UsedSpaceBytes   int64
	LimitSpaceBytes  int64
	SignupIP         string
	LastLoginIP      *string
}

// DisplayName is the label shown to other users in file listings.
func (u *User) DisplayName() string {
	if u.Surname == "" {
		return u.Name
	}
	return u.Name + " " + u.Surname
}
