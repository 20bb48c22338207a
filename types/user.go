package types

import "time"

// Roles carried in access tokens.
const (
	RoleAdmin    = "admin"
	RoleUser     = "user"
	RoleNeighbor = "neighbor"
)

// User represents an administrator or generic user credential.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name.
	Username string `json:"username" db:"username"`

	// Role is either "admin" or "user".
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserUpdate carries the fields of a partial user update.
// Nil fields are left untouched.
type UserUpdate struct {
	Username     *string
	Role         *string
	PasswordHash *string
}
