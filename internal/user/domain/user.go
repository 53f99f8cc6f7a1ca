package domain

import (
	"errors"
	"time"

	"tenant-auth-plane/internal/platform/ids"
)

// User is the core user entity. Credentials live with the external identity
// provider; the auth plane only tracks identity and account status.
type User struct {
	ID        ids.UserID
	Email     string
	Status    UserStatus
	CreatedAt time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Disabled reports whether the account may no longer authenticate.
func (u *User) Disabled() bool {
	return u.Status == UserStatusDisabled
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID.IsZero() {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
