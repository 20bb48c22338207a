package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("unique constraint violated")

	// ErrReferenced is returned when a foreign key constraint is violated,
	// either by deleting a referenced row or by referencing a missing one.
	ErrReferenced = errors.New("foreign key constraint violated")

	// ErrCheckViolation is returned when a check constraint rejects a row.
	ErrCheckViolation = errors.New("check constraint violated")

	// ErrInvalidValue is returned when a value does not fit its column.
	ErrInvalidValue = errors.New("value does not fit column")

	// ErrNoChanges is returned by partial updates with nothing to set.
	ErrNoChanges = errors.New("no fields to update")
)

// Postgres SQLSTATE codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeStringTooLong       = "22001"
	codeNumericOutOfRange   = "22003"
)

// ConstraintError carries the name of the violated constraint alongside
// its kind so callers can tell, for example, a duplicate id from a
// duplicate email.
type ConstraintError struct {
	Kind       error
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Constraint)
}

func (e *ConstraintError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Constraint returns the violated constraint name, or "" when err is not a
// constraint violation.
func Constraint(err error) string {
	var cerr *ConstraintError
	if errors.As(err, &cerr) {
		return cerr.Constraint
	}
	return ""
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	var kind error
	switch pqErr.Code {
	case codeStringTooLong, codeNumericOutOfRange:
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	case codeUniqueViolation:
		kind = ErrConflict
	case codeForeignKeyViolation:
		kind = ErrReferenced
	case codeCheckViolation:
		kind = ErrCheckViolation
	default:
		return err
	}
	return &ConstraintError{Kind: kind, Constraint: pqErr.Constraint, Err: err}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
