package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hoa-ledger/apiserver/internal/store"
	"github.com/hoa-ledger/apiserver/types"
)

const (
	maxHouseIDLength = 10
	maxOwnerLength   = 100
)

// HouseRepository defines persistence operations for houses.
type HouseRepository interface {
	List(ctx context.Context) ([]types.House, error)
	Get(ctx context.Context, id string) (types.House, error)
	Create(ctx context.Context, house types.House) (types.House, error)
	Update(ctx context.Context, id string, update types.HouseUpdate) (types.House, error)
	Delete(ctx context.Context, id string) error
}

// HouseInput carries house fields. On create ID is required; on update nil
// fields are left untouched and an empty Owner clears it.
type HouseInput struct {
	ID    *string
	Owner *string
}

type HouseService struct {
	repo HouseRepository
}

func NewHouseService(repo HouseRepository) *HouseService {
	return &HouseService{repo: repo}
}

func (s *HouseService) List(ctx context.Context) ([]types.House, error) {
	return s.repo.List(ctx)
}

func (s *HouseService) Get(ctx context.Context, id string) (types.House, error) {
	house, err := s.repo.Get(ctx, strings.TrimSpace(id))
	return house, mapHouseError(err)
}

func (s *HouseService) Create(ctx context.Context, input HouseInput) (types.House, error) {
	if input.ID == nil {
		return types.House{}, invalid("id is required")
	}
	id, err := validHouseID(*input.ID)
	if err != nil {
		return types.House{}, err
	}
	owner, err := optionalText("owner", input.Owner, maxOwnerLength)
	if err != nil {
		return types.House{}, err
	}

	house, err := s.repo.Create(ctx, types.House{ID: id, Owner: owner})
	return house, mapHouseError(err)
}

// Update changes a house. Renaming it carries its neighbors along.
func (s *HouseService) Update(ctx context.Context, id string, input HouseInput) (types.House, error) {
	var update types.HouseUpdate
	if input.ID != nil {
		newID, err := validHouseID(*input.ID)
		if err != nil {
			return types.House{}, err
		}
		update.ID = &newID
	}
	if input.Owner != nil {
		owner := strings.TrimSpace(*input.Owner)
		if len(owner) > maxOwnerLength {
			return types.House{}, invalid("owner must be at most %d characters", maxOwnerLength)
		}
		update.Owner = &owner
	}

	house, err := s.repo.Update(ctx, strings.TrimSpace(id), update)
	return house, mapHouseError(err)
}

// Delete removes a house. Houses that still have neighbors are kept and
// ErrHouseInUse is returned.
func (s *HouseService) Delete(ctx context.Context, id string) error {
	return mapHouseError(s.repo.Delete(ctx, strings.TrimSpace(id)))
}

func validHouseID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxHouseIDLength {
		return "", invalid("house id must be 1 to %d characters", maxHouseIDLength)
	}
	return id, nil
}

// optionalText trims value and turns blanks into nil.
func optionalText(field string, value *string, maxLength int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > maxLength {
		return nil, invalid("%s must be at most %d characters", field, maxLength)
	}
	return &trimmed, nil
}

func mapHouseError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrHouseNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrHouseExists
	case errors.Is(err, store.ErrReferenced):
		return ErrHouseInUse
	case errors.Is(err, store.ErrNoChanges):
		return invalid("no fields to update")
	default:
		return fmt.Errorf("houses: %w", err)
	}
}
