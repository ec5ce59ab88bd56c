package users

import "context"

// System defines the public contract for user operations.
type System interface {
	Handler() *Handler

	Find(ctx context.Context, userID string) (*User, error)
	// Ensure returns the user for cmd.UserID, creating it with RoleUser when absent.
	Ensure(ctx context.Context, cmd EnsureCommand) (*User, error)
	// IsAdmin reports whether userID holds the admin role. Lookup failures
	// are logged and treated as non-admin.
	IsAdmin(ctx context.Context, userID string) bool
	SetRole(ctx context.Context, userID string, cmd SetRoleCommand) (*User, error)
}
