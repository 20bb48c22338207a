package types

import "time"

// House is a property in the neighborhood.
type House struct {
	// ID is a short free-form identifier such as "12" or "B-3".
	ID string `json:"id" db:"id"`

	// Owner is the optional owner name.
	Owner *string `json:"owner" db:"owner"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HouseUpdate carries the fields of a partial house update.
type HouseUpdate struct {
	ID    *string
	Owner *string
}
