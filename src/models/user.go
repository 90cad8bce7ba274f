package models

import (
	"time"
)

type UserStatus int

const (
	UserStatusInactive  UserStatus = 1 // Default for new users
	UserStatusConfirmed UserStatus = 2 // Confirmed email address
	UserStatusApproved  UserStatus = 3 // Approved by an admin and allowed to publish
	UserStatusBanned    UserStatus = 4
)

// A registered account on the wiki. Anonymous visitors have no User at all
// and are represented as nil throughout the codebase.
type User struct {
	ID int `db:"id"`

	Username string `db:"username"`
	Name     string `db:"name"`
	Email    string `db:"email"`

	DateJoined time.Time  `db:"date_joined"`
	LastLogin  *time.Time `db:"last_login"`

	// Staff hold every newsletter permission regardless of publisher
	// membership.
	IsStaff bool       `db:"is_staff"`
	Status  UserStatus `db:"status"`

	// Suppressed users receive no notifications.
	Suppressed bool `db:"suppressed"`
}

func (u *User) BestName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusConfirmed || u.Status == UserStatusApproved
}
