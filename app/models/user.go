package models

import "time"

// User is the persisted account record. PasswordHash is a bcrypt hash and is
// never serialized in API responses.
type User struct {
	ID               int64
	FirstName        string
	LastName         string
	Email            string
	PasswordHash     string
	RoleID           int
	IsVerified       bool
	TwoFactorEnabled bool
	CreatedAt        time.Time
}

// FullName is the recipient display name on outbound notifications.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Role struct {
	ID   int
	Name string
}

// Role IDs seeded by the initial migration. Signup assigns RoleUser.
const (
	RoleAdmin = 1
	RoleUser  = 2
)
