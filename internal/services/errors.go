package services

import (
	"errors"
	"fmt"
)

// ValidationError reports a request that is malformed or breaks a business
// rule. Its message is safe to show to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")

	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")

	ErrHouseNotFound = errors.New("house not found")
	ErrHouseExists   = errors.New("house already exists")
	ErrHouseInUse    = errors.New("house is in use")

	ErrNeighborNotFound  = errors.New("neighbor not found")
	ErrNeighborExists    = errors.New("neighbor already exists")
	ErrEmailTaken        = errors.New("email already in use")
	ErrNeighborHasLedger = errors.New("neighbor has charges or payments")
	ErrIDGeneration      = errors.New("could not generate unique identifier")

	ErrNotConfigured = errors.New("neighborhood not configured")

	ErrChargeNotFound  = errors.New("charge not found")
	ErrChargeExists    = errors.New("charge already exists for period")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrStorageDisabled = errors.New("receipt storage is not configured")
)
