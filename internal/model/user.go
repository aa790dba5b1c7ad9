package model

import "time"

// Role is the closed set of account roles. The value is stored as a
// plain string column, but handlers and middleware should only ever
// see one of the constants below; ParseRole rejects anything else.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleUser     Role = "user"
	RoleGuest    Role = "guest"
)

// ParseRole maps a raw string onto a Role constant. The boolean is
// false for unknown values so callers can refuse free-form input.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleOperator, RoleUser, RoleGuest:
		return Role(s), true
	}
	return "", false
}

// User represents an application user record as stored in the
// `users` table. IDs are UUIDv7 strings so they sort by creation
// time. InvitedBy is nil for self-registered users and references
// the inviting user's id otherwise.
//
// Fields:
//  ID           – UUIDv7 primary key of the user.
//  Email        – unique email address (stored lowercased).
//  PasswordHash – bcrypt hashed password.
//  Role         – account role (admin/operator/user/guest).
//  IsActive     – whether the account has been activated.
//  InvitedBy    – id of the inviting user, if any.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	IsActive     bool      // users.is_active
	InvitedBy    *string   // users.invited_by
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
