// Package ledger holds the money arithmetic of a neighbor's account:
// balances, unpaid dues per period and the amount charged per period.
package ledger

import (
	"sort"
	"time"

	"github.com/hoa-ledger/apiserver/types"
	"github.com/shopspring/decimal"
)

// Summarize totals a neighbor's charges and payments.
func Summarize(userID string, charges []types.Charge, payments []types.Payment) types.Balance {
	totalCharges := decimal.Zero
	for _, charge := range charges {
		totalCharges = totalCharges.Add(charge.Amount)
	}
	totalPayments := decimal.Zero
	for _, payment := range payments {
		totalPayments = totalPayments.Add(payment.Amount)
	}
	return NewBalance(userID, totalCharges, totalPayments)
}

// NewBalance builds a Balance from already summed totals.
func NewBalance(userID string, totalCharges, totalPayments decimal.Decimal) types.Balance {
	return types.Balance{
		UserID:        userID,
		TotalCharges:  totalCharges,
		TotalPayments: totalPayments,
		Balance:       totalCharges.Sub(totalPayments),
	}
}

// PeriodDues applies totalPaid to the oldest charges first and returns what
// is still owed for each period. Fully paid periods are omitted.
func PeriodDues(userID string, charges []types.Charge, totalPaid decimal.Decimal) []types.PeriodDue {
	ordered := make([]types.Charge, len(charges))
	copy(ordered, charges)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Period.Before(ordered[j].Period)
	})

	remaining := totalPaid
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	dues := make([]types.PeriodDue, 0)
	for _, charge := range ordered {
		if remaining.GreaterThanOrEqual(charge.Amount) {
			remaining = remaining.Sub(charge.Amount)
			continue
		}
		dues = append(dues, types.PeriodDue{
			UserID:    userID,
			Period:    charge.Period,
			DueAmount: charge.Amount.Sub(remaining),
		})
		remaining = decimal.Zero
	}
	return dues
}

// FilterPeriod keeps only the dues of period.
func FilterPeriod(dues []types.PeriodDue, period types.Period) []types.PeriodDue {
	filtered := make([]types.PeriodDue, 0, 1)
	for _, due := range dues {
		if due.Period.Start().Equal(period.Start()) {
			filtered = append(filtered, due)
		}
	}
	return filtered
}

// MonthlyCharge is the amount owed for period under cfg. A weekly
// contribution is owed once per Monday of the month.
func MonthlyCharge(cfg types.Neighborhood, period types.Period) decimal.Decimal {
	if cfg.Periodicity == types.PeriodicityWeekly {
		return cfg.Amount.Mul(decimal.NewFromInt(int64(Mondays(period))))
	}
	return cfg.Amount
}

// Mondays counts the Mondays in period.
func Mondays(period types.Period) int {
	start := period.Start()
	offset := (int(time.Monday) - int(start.Weekday()) + 7) % 7
	days := period.Next().Start().Sub(start).Hours() / 24

	count := 0
	for day := offset; day < int(days); day += 7 {
		count++
	}
	return count
}
