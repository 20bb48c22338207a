package types

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Periodicity is how often the contribution amount is owed.
type Periodicity string

const (
	PeriodicityWeekly  Periodicity = "weekly"
	PeriodicityMonthly Periodicity = "monthly"
)

// ErrInvalidPeriodicity is returned for unknown periodicity values.
var ErrInvalidPeriodicity = errors.New("periodicity must be weekly or monthly")

// ParsePeriodicity accepts the canonical values and the Spanish labels used
// by the web client, case-insensitively.
func ParsePeriodicity(raw string) (Periodicity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "weekly", "semanal":
		return PeriodicityWeekly, nil
	case "monthly", "mensual":
		return PeriodicityMonthly, nil
	default:
		return "", ErrInvalidPeriodicity
	}
}

// Neighborhood is the singleton association configuration.
type Neighborhood struct {
	Name        string          `json:"name" db:"name"`
	Periodicity Periodicity     `json:"periodicity" db:"periodicity"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
