package store

import (
	"context"
	"database/sql"

	"github.com/hoa-ledger/apiserver/types"
	"github.com/shopspring/decimal"
)

const (
	chargeColumns  = `id, user_id, period, amount, note, created_at`
	paymentColumns = `id, user_id, amount, method, reference, note, paid_at, receipt_key, created_at`
)

// LedgerRepository handles persistence for charges and payments.
type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func scanCharge(row rowScanner) (types.Charge, error) {
	var charge types.Charge
	err := row.Scan(
		&charge.ID,
		&charge.UserID,
		&charge.Period,
		&charge.Amount,
		&charge.Note,
		&charge.CreatedAt,
	)
	return charge, err
}

func scanPayment(row rowScanner) (types.Payment, error) {
	var payment types.Payment
	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Amount,
		&payment.Method,
		&payment.Reference,
		&payment.Note,
		&payment.PaidAt,
		&payment.ReceiptKey,
		&payment.CreatedAt,
	)
	return payment, err
}

// ListCharges returns a neighbor's charges, oldest period first.
func (r *LedgerRepository) ListCharges(ctx context.Context, userID string) ([]types.Charge, error) {
	const query = `SELECT ` + chargeColumns + ` FROM charges WHERE user_id = $1 ORDER BY period, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	charges := make([]types.Charge, 0)
	for rows.Next() {
		charge, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, charge)
	}
	return charges, rows.Err()
}

// CreateCharge fails with ErrConflict when the neighbor already has a
// charge for the period and with ErrReferenced when the neighbor is unknown.
func (r *LedgerRepository) CreateCharge(ctx context.Context, charge types.Charge) (types.Charge, error) {
	const query = `
		INSERT INTO charges (user_id, period, amount, note)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + chargeColumns
	created, err := scanCharge(r.db.QueryRowContext(ctx, query, charge.UserID, charge.Period, charge.Amount, charge.Note))
	if err != nil {
		return types.Charge{}, mapError(err)
	}
	return created, nil
}

func (r *LedgerRepository) DeleteCharge(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM charges WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateCharges creates one charge of amount for every neighbor that has
// none for the period yet and returns how many were created. It is safe to
// run repeatedly.
func (r *LedgerRepository) GenerateCharges(ctx context.Context, period types.Period, amount decimal.Decimal, note string) (int64, error) {
	const query = `
		INSERT INTO charges (user_id, period, amount, note)
		SELECT user_id, $1, $2, $3 FROM neighbors
		ON CONFLICT ON CONSTRAINT charges_user_period_uniq DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, period, amount, note)
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}

// ListPayments returns a neighbor's payments, most recent first.
func (r *LedgerRepository) ListPayments(ctx context.Context, userID string) ([]types.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY paid_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]types.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (r *LedgerRepository) GetPayment(ctx context.Context, id int64) (types.Payment, error) {
	payment, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return types.Payment{}, mapError(err)
	}
	return payment, nil
}

// CreatePayment inserts a payment. A zero PaidAt defaults to now.
func (r *LedgerRepository) CreatePayment(ctx context.Context, payment types.Payment) (types.Payment, error) {
	const query = `
		INSERT INTO payments (user_id, amount, method, reference, note, paid_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING ` + paymentColumns
	paidAt := sql.NullTime{Time: payment.PaidAt, Valid: !payment.PaidAt.IsZero()}
	created, err := scanPayment(r.db.QueryRowContext(
		ctx,
		query,
		payment.UserID,
		payment.Amount,
		payment.Method,
		payment.Reference,
		payment.Note,
		paidAt,
	))
	if err != nil {
		return types.Payment{}, mapError(err)
	}
	return created, nil
}

func (r *LedgerRepository) SetPaymentReceipt(ctx context.Context, id int64, key string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE payments SET receipt_key = $1, updated_at = NOW() WHERE id = $2`, key, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Totals returns the summed charges and payments of a neighbor in one
// statement so both sums come from the same snapshot.
func (r *LedgerRepository) Totals(ctx context.Context, userID string) (charges, payments decimal.Decimal, err error) {
	const query = `
		SELECT
			COALESCE((SELECT SUM(amount) FROM charges WHERE user_id = $1), 0),
			COALESCE((SELECT SUM(amount) FROM payments WHERE user_id = $1), 0)`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&charges, &payments); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return charges, payments, nil
}
