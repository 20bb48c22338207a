package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

const periodLayout = "2006-01-02"

// Period is a calendar month, represented by its first day in UTC.
type Period struct {
	start time.Time
}

// ErrInvalidPeriod is returned for values that are not YYYY-MM-01.
var ErrInvalidPeriod = errors.New("period must be the first day of a month (YYYY-MM-01)")

// NewPeriod returns the period for the given year and month.
func NewPeriod(year int, month time.Month) Period {
	return Period{start: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)}
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return NewPeriod(t.Year(), t.Month())
}

// ParsePeriod parses "YYYY-MM-01". Any other day of month is rejected.
func ParsePeriod(raw string) (Period, error) {
	t, err := time.Parse(periodLayout, strings.TrimSpace(raw))
	if err != nil || t.Day() != 1 {
		return Period{}, ErrInvalidPeriod
	}
	return PeriodOf(t), nil
}

// Start returns the first instant of the period.
func (p Period) Start() time.Time { return p.start }

// IsZero reports whether p is the zero period.
func (p Period) IsZero() bool { return p.start.IsZero() }

// Before reports whether p is earlier than other.
func (p Period) Before(other Period) bool { return p.start.Before(other.start) }

// Next returns the following month.
func (p Period) Next() Period { return PeriodOf(p.start.AddDate(0, 1, 0)) }

func (p Period) String() string { return p.start.Format(periodLayout) }

func (p Period) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *Period) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	parsed, err := ParsePeriod(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value implements driver.Valuer.
func (p Period) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner for DATE columns.
func (p *Period) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*p = PeriodOf(v)
		return nil
	case []byte:
		return p.scanString(string(v))
	case string:
		return p.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Period", src)
	}
}

func (p *Period) scanString(raw string) error {
	if len(raw) > len(periodLayout) {
		raw = raw[:len(periodLayout)]
	}
	t, err := time.Parse(periodLayout, raw)
	if err != nil {
		return err
	}
	*p = PeriodOf(t)
	return nil
}
