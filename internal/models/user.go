package models

import (
	"strings"
	"time"
)

// unusablePasswordPrefix marks accounts that cannot log in with a password.
const unusablePasswordPrefix = "!"

// User is the local mirror of an LMS account.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Password   string    `json:"-"`
	IsActive   bool      `json:"is_active"`
	IsStaff    bool      `json:"is_staff"`
	DateJoined time.Time `json:"date_joined"`
}

// NewUser creates an active User with an unusable password.
func NewUser(id int64, username, email string) *User {
	return &User{
		ID:         id,
		Username:   username,
		Email:      email,
		Password:   unusablePasswordPrefix,
		IsActive:   true,
		DateJoined: time.Now(),
	}
}

// FullName returns "First Last" with surrounding whitespace removed.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasUsablePassword reports whether the account can log in.
func (u *User) HasUsablePassword() bool {
	return u.Password != "" && !strings.HasPrefix(u.Password, unusablePasswordPrefix)
}

// CanReceiveEmail reports whether notifications should be sent to the user.
func (u *User) CanReceiveEmail() bool {
	return u.IsActive && u.HasUsablePassword() && u.Email != ""
}
