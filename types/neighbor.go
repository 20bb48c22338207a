package types

import "time"

// Neighbor is a resident of the association. Neighbors log in with their
// UserID and may only see their own ledger.
type Neighbor struct {
	// UserID is three uppercase letters followed by two digits, e.g. "ABC12".
	UserID string `json:"user_id" db:"user_id"`

	// Name is the neighbor's display name.
	Name string `json:"name" db:"name"`

	// HouseID references the house the neighbor lives in.
	HouseID string `json:"house_id" db:"house_id"`

	// Email is optional and unique when present.
	Email *string `json:"email" db:"email"`

	// Phone is optional.
	Phone *string `json:"phone" db:"phone"`

	// PasswordHash is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NeighborUpdate carries the fields of a partial neighbor update.
// Nil fields are left untouched; a non-nil pointer to "" clears an optional
// column.
type NeighborUpdate struct {
	Name         *string
	HouseID      *string
	Email        *string
	Phone        *string
	PasswordHash *string
}
