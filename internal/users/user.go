// Package users implements the user document domain: profiles created on
// first sign-in and the role that gates moderation.
package users

import "time"

// Role is the sole authorization signal for a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the stored profile for an identity provider subject.
type User struct {
	ID          string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// EnsureCommand carries the identity claims used to create a user on first sign-in.
type EnsureCommand struct {
	UserID      string
	DisplayName string
	Email       string
}

// SetRoleCommand changes a user's role.
type SetRoleCommand struct {
	Role Role `json:"role"`
}
