package types

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are rendered as JSON numbers, which is what clients expect.
	decimal.MarshalJSONWithoutQuotes = true
}

// Charge is an amount owed by a neighbor for one period.
// There is at most one charge per (neighbor, period).
type Charge struct {
	ID        int64           `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Period    Period          `json:"period" db:"period"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Note      *string         `json:"note" db:"note"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Payment is an amount paid by a neighbor.
type Payment struct {
	ID        int64           `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Method    *string         `json:"method" db:"method"`
	Reference *string         `json:"reference" db:"reference"`
	Note      *string         `json:"note" db:"note"`
	PaidAt    time.Time       `json:"paid_at" db:"paid_at"`

	// ReceiptKey is the object key of an uploaded receipt, if any.
	ReceiptKey *string   `json:"receipt_key,omitempty" db:"receipt_key"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Balance is derived on every read: TotalCharges - TotalPayments.
type Balance struct {
	UserID        string          `json:"user_id"`
	TotalCharges  decimal.Decimal `json:"total_charges"`
	TotalPayments decimal.Decimal `json:"total_payments"`
	Balance       decimal.Decimal `json:"balance"`
}

// PeriodDue is the unpaid remainder of one period's charge.
type PeriodDue struct {
	UserID    string          `json:"user_id"`
	Period    Period          `json:"period"`
	DueAmount decimal.Decimal `json:"due_amount"`
}
