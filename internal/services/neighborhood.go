package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hoa-ledger/apiserver/internal/store"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/shopspring/decimal"
)

// NeighborhoodRepository persists the singleton configuration.
type NeighborhoodRepository interface {
	Get(ctx context.Context) (types.Neighborhood, error)
	Upsert(ctx context.Context, cfg types.Neighborhood) (types.Neighborhood, error)
}

// NeighborhoodInput is the body of a configuration write.
type NeighborhoodInput struct {
	Name        string
	Periodicity string
	Amount      decimal.Decimal
}

type NeighborhoodService struct {
	repo NeighborhoodRepository
}

func NewNeighborhoodService(repo NeighborhoodRepository) *NeighborhoodService {
	return &NeighborhoodService{repo: repo}
}

func (s *NeighborhoodService) Get(ctx context.Context) (types.Neighborhood, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Neighborhood{}, ErrNotConfigured
		}
		return types.Neighborhood{}, fmt.Errorf("neighborhood: %w", err)
	}
	return cfg, nil
}

// Save creates or replaces the configuration.
func (s *NeighborhoodService) Save(ctx context.Context, input NeighborhoodInput) (types.Neighborhood, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxNameLength {
		return types.Neighborhood{}, invalid("name must be 1 to %d characters", maxNameLength)
	}
	periodicity, err := types.ParsePeriodicity(input.Periodicity)
	if err != nil {
		return types.Neighborhood{}, invalid("%s", err.Error())
	}
	if input.Amount.IsNegative() {
		return types.Neighborhood{}, invalid("amount must not be negative")
	}
	if err := checkCents(input.Amount); err != nil {
		return types.Neighborhood{}, err
	}
	if input.Amount.GreaterThanOrEqual(maxAmount) {
		return types.Neighborhood{}, invalid("amount is too large")
	}

	cfg, err := s.repo.Upsert(ctx, types.Neighborhood{
		Name:        name,
		Periodicity: periodicity,
		Amount:      input.Amount,
	})
	if err != nil {
		return types.Neighborhood{}, fmt.Errorf("save neighborhood: %w", err)
	}
	return cfg, nil
}

// checkCents rejects amounts with more than two decimal places.
func checkCents(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(2)) {
		return invalid("amount must have at most two decimal places")
	}
	return nil
}
