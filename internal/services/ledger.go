package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hoa-ledger/apiserver/internal/ledger"
	"github.com/hoa-ledger/apiserver/internal/store"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/shopspring/decimal"
)

// maxAmount is the first value that no longer fits numeric(12,2).
var maxAmount = decimal.New(1, 10)

const (
	maxMethodLength    = 30
	maxReferenceLength = 120
)

// LedgerRepository defines persistence operations for charges and payments.
type LedgerRepository interface {
	ListCharges(ctx context.Context, userID string) ([]types.Charge, error)
	CreateCharge(ctx context.Context, charge types.Charge) (types.Charge, error)
	DeleteCharge(ctx context.Context, id int64) error
	GenerateCharges(ctx context.Context, period types.Period, amount decimal.Decimal, note string) (int64, error)
	ListPayments(ctx context.Context, userID string) ([]types.Payment, error)
	GetPayment(ctx context.Context, id int64) (types.Payment, error)
	CreatePayment(ctx context.Context, payment types.Payment) (types.Payment, error)
	SetPaymentReceipt(ctx context.Context, id int64, key string) error
	Totals(ctx context.Context, userID string) (charges, payments decimal.Decimal, err error)
}

// PaymentInput is a payment to record.
type PaymentInput struct {
	Amount    decimal.Decimal
	Method    *string
	Reference *string
	Note      *string
	PaidAt    *time.Time
}

// ChargeInput is a manually entered charge.
type ChargeInput struct {
	UserID string
	Period types.Period
	Amount decimal.Decimal
	Note   *string
}

// GenerateResult reports a charge generation run.
type GenerateResult struct {
	Period  types.Period    `json:"period"`
	Amount  decimal.Decimal `json:"amount"`
	Created int64           `json:"created"`
}

// ChargeCounter counts generated charges.
type ChargeCounter interface {
	Add(float64)
}

type LedgerService struct {
	repo      LedgerRepository
	neighbors NeighborRepository
	config    NeighborhoodRepository
	events    EventPublisher
	generated ChargeCounter
	now       func() time.Time
}

func NewLedgerService(
	repo LedgerRepository,
	neighbors NeighborRepository,
	config NeighborhoodRepository,
	events EventPublisher,
	generated ChargeCounter,
) *LedgerService {
	return &LedgerService{
		repo:      repo,
		neighbors: neighbors,
		config:    config,
		events:    publisherOrNop(events),
		generated: generated,
		now:       time.Now,
	}
}

// Balance is recomputed from the store on every call.
func (s *LedgerService) Balance(ctx context.Context, userID string) (types.Balance, error) {
	if err := s.requireNeighbor(ctx, userID); err != nil {
		return types.Balance{}, err
	}
	return s.balance(ctx, userID)
}

func (s *LedgerService) balance(ctx context.Context, userID string) (types.Balance, error) {
	charges, payments, err := s.repo.Totals(ctx, userID)
	if err != nil {
		return types.Balance{}, fmt.Errorf("ledger totals: %w", err)
	}
	return ledger.NewBalance(userID, charges, payments), nil
}

// PeriodDues lists what is still owed per period. A non-zero period limits
// the result to that period.
func (s *LedgerService) PeriodDues(ctx context.Context, userID string, period types.Period) ([]types.PeriodDue, error) {
	if err := s.requireNeighbor(ctx, userID); err != nil {
		return nil, err
	}
	charges, err := s.repo.ListCharges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	_, paid, err := s.repo.Totals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger totals: %w", err)
	}

	dues := ledger.PeriodDues(userID, charges, paid)
	if !period.IsZero() {
		dues = ledger.FilterPeriod(dues, period)
	}
	return dues, nil
}

func (s *LedgerService) Charges(ctx context.Context, userID string) ([]types.Charge, error) {
	if err := s.requireNeighbor(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListCharges(ctx, userID)
}

func (s *LedgerService) Payments(ctx context.Context, userID string) ([]types.Payment, error) {
	if err := s.requireNeighbor(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, userID)
}

// RecordPayment stores a payment and returns it with the balance that
// results from it.
func (s *LedgerService) RecordPayment(ctx context.Context, userID string, input PaymentInput) (types.Payment, types.Balance, error) {
	if err := checkPositiveAmount(input.Amount); err != nil {
		return types.Payment{}, types.Balance{}, err
	}
	method, err := optionalText("method", input.Method, maxMethodLength)
	if err != nil {
		return types.Payment{}, types.Balance{}, err
	}
	reference, err := optionalText("reference", input.Reference, maxReferenceLength)
	if err != nil {
		return types.Payment{}, types.Balance{}, err
	}

	payment := types.Payment{
		UserID:    userID,
		Amount:    input.Amount,
		Method:    method,
		Reference: reference,
		Note:      trimmed(input.Note),
	}
	if input.PaidAt != nil {
		payment.PaidAt = *input.PaidAt
	}

	created, err := s.repo.CreatePayment(ctx, payment)
	if err != nil {
		if errors.Is(err, store.ErrReferenced) {
			return types.Payment{}, types.Balance{}, ErrNeighborNotFound
		}
		return types.Payment{}, types.Balance{}, fmt.Errorf("create payment: %w", err)
	}

	balance, err := s.balance(ctx, userID)
	if err != nil {
		return types.Payment{}, types.Balance{}, err
	}

	s.events.Publish(ctx, EventPaymentRecorded, userID, map[string]any{
		"payment_id": created.ID,
		"amount":     created.Amount,
		"balance":    balance.Balance,
	})
	return created, balance, nil
}

func (s *LedgerService) CreateCharge(ctx context.Context, input ChargeInput) (types.Charge, error) {
	userID := normalizeNeighborID(input.UserID)
	if userID == "" {
		return types.Charge{}, invalid("user_id is required")
	}
	if input.Period.IsZero() {
		return types.Charge{}, invalid("period is required")
	}
	if err := checkPositiveAmount(input.Amount); err != nil {
		return types.Charge{}, err
	}

	charge, err := s.repo.CreateCharge(ctx, types.Charge{
		UserID: userID,
		Period: input.Period,
		Amount: input.Amount,
		Note:   trimmed(input.Note),
	})
	switch {
	case err == nil:
		return charge, nil
	case errors.Is(err, store.ErrConflict):
		return types.Charge{}, ErrChargeExists
	case errors.Is(err, store.ErrReferenced):
		return types.Charge{}, ErrNeighborNotFound
	default:
		return types.Charge{}, fmt.Errorf("create charge: %w", err)
	}
}

func (s *LedgerService) DeleteCharge(ctx context.Context, id int64) error {
	err := s.repo.DeleteCharge(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrChargeNotFound
	}
	return err
}

// GenerateCharges charges every neighbor the configured contribution for
// period, skipping neighbors already charged for it. A zero period means the
// current month. Running it twice for the same period creates nothing new.
func (s *LedgerService) GenerateCharges(ctx context.Context, period types.Period) (GenerateResult, error) {
	if period.IsZero() {
		period = types.PeriodOf(s.now().UTC())
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return GenerateResult{}, ErrNotConfigured
		}
		return GenerateResult{}, fmt.Errorf("load neighborhood: %w", err)
	}

	amount := ledger.MonthlyCharge(cfg, period)
	result := GenerateResult{Period: period, Amount: amount}
	if !amount.IsPositive() {
		return result, nil
	}

	note := fmt.Sprintf("%s contribution %s", cfg.Periodicity, period.Start().Format("2006-01"))
	created, err := s.repo.GenerateCharges(ctx, period, amount, note)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("generate charges: %w", err)
	}
	result.Created = created

	if s.generated != nil {
		s.generated.Add(float64(created))
	}
	if created > 0 {
		s.events.Publish(ctx, EventChargesGenerated, period.String(), result)
	}
	return result, nil
}

func (s *LedgerService) requireNeighbor(ctx context.Context, userID string) error {
	if _, err := s.neighbors.Get(ctx, userID); err != nil {
		return mapNeighborError(err)
	}
	return nil
}

func checkPositiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount must be a positive number")
	}
	if err := checkCents(amount); err != nil {
		return err
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return invalid("amount is too large")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	text := strings.TrimSpace(*value)
	if text == "" {
		return nil
	}
	return &text
}
