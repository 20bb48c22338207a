package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hoa-ledger/apiserver/internal/auth"
	"github.com/hoa-ledger/apiserver/internal/store"
	"github.com/hoa-ledger/apiserver/types"
)

const (
	maxIDAttempts     = 5
	maxNameLength     = 100
	maxEmailLength    = 120
	maxPhoneLength    = 20
	emailConstraint   = "neighbors_email_key"
	neighborIDLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var neighborIDPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{2}$`)

// NeighborRepository defines persistence operations for neighbors.
type NeighborRepository interface {
	List(ctx context.Context) ([]types.Neighbor, error)
	Get(ctx context.Context, userID string) (types.Neighbor, error)
	Exists(ctx context.Context, userID string) (bool, error)
	Create(ctx context.Context, neighbor types.Neighbor) (types.Neighbor, error)
	Update(ctx context.Context, userID string, update types.NeighborUpdate) (types.Neighbor, error)
	Delete(ctx context.Context, userID string) error
}

// NeighborInput carries neighbor fields. On create Password, Name and
// HouseID are required and UserID is generated when nil. On update nil
// fields are left untouched.
type NeighborInput struct {
	UserID   *string
	Password *string
	Name     *string
	HouseID  *string
	Email    *string
	Phone    *string
}

type NeighborService struct {
	repo       NeighborRepository
	houses     HouseRepository
	events     EventPublisher
	generateID func() (string, error)
}

func NewNeighborService(repo NeighborRepository, houses HouseRepository, events EventPublisher) *NeighborService {
	return &NeighborService{
		repo:       repo,
		houses:     houses,
		events:     publisherOrNop(events),
		generateID: randomNeighborID,
	}
}

func (s *NeighborService) List(ctx context.Context) ([]types.Neighbor, error) {
	return s.repo.List(ctx)
}

func (s *NeighborService) Get(ctx context.Context, userID string) (types.Neighbor, error) {
	neighbor, err := s.repo.Get(ctx, normalizeNeighborID(userID))
	return neighbor, mapNeighborError(err)
}

func (s *NeighborService) Create(ctx context.Context, input NeighborInput) (types.Neighbor, error) {
	password := deref(input.Password)
	name := strings.TrimSpace(deref(input.Name))
	houseID := strings.TrimSpace(deref(input.HouseID))
	if password == "" || name == "" || houseID == "" {
		return types.Neighbor{}, invalid("password, name and house_id are required")
	}
	if len(name) > maxNameLength {
		return types.Neighbor{}, invalid("name must be at most %d characters", maxNameLength)
	}
	email, err := validEmail(input.Email)
	if err != nil {
		return types.Neighbor{}, err
	}
	phone, err := optionalText("phone", input.Phone, maxPhoneLength)
	if err != nil {
		return types.Neighbor{}, err
	}

	var userID string
	if input.UserID != nil && strings.TrimSpace(*input.UserID) != "" {
		userID = normalizeNeighborID(*input.UserID)
		if !neighborIDPattern.MatchString(userID) {
			return types.Neighbor{}, invalid("user_id must be three letters followed by two digits")
		}
	} else {
		userID, err = s.freeNeighborID(ctx)
		if err != nil {
			return types.Neighbor{}, err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return types.Neighbor{}, err
	}

	neighbor, err := s.repo.Create(ctx, types.Neighbor{
		UserID:       userID,
		Name:         name,
		HouseID:      houseID,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Neighbor{}, ErrHouseNotFound
		}
		return types.Neighbor{}, mapNeighborError(err)
	}

	s.events.Publish(ctx, EventNeighborCreated, neighbor.UserID, map[string]string{
		"user_id":  neighbor.UserID,
		"house_id": neighbor.HouseID,
	})
	return neighbor, nil
}

// freeNeighborID returns a random id no neighbor holds yet. A concurrent
// insert of the same id still fails later with ErrNeighborExists.
func (s *NeighborService) freeNeighborID(ctx context.Context) (string, error) {
	for range maxIDAttempts {
		candidate, err := s.generateID()
		if err != nil {
			return "", err
		}
		exists, err := s.repo.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check neighbor id: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrIDGeneration
}

func (s *NeighborService) Update(ctx context.Context, userID string, input NeighborInput) (types.Neighbor, error) {
	var update types.NeighborUpdate
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len(name) > maxNameLength {
			return types.Neighbor{}, invalid("name must be 1 to %d characters", maxNameLength)
		}
		update.Name = &name
	}
	if input.HouseID != nil {
		houseID := strings.TrimSpace(*input.HouseID)
		if houseID == "" {
			return types.Neighbor{}, invalid("house_id must not be empty")
		}
		if _, err := s.houses.Get(ctx, houseID); err != nil {
			return types.Neighbor{}, mapHouseError(err)
		}
		update.HouseID = &houseID
	}
	if input.Email != nil {
		email, err := validEmail(input.Email)
		if err != nil {
			return types.Neighbor{}, err
		}
		update.Email = clearable(email)
	}
	if input.Phone != nil {
		phone, err := optionalText("phone", input.Phone, maxPhoneLength)
		if err != nil {
			return types.Neighbor{}, err
		}
		update.Phone = clearable(phone)
	}
	if input.Password != nil {
		if *input.Password == "" {
			return types.Neighbor{}, invalid("password must not be empty")
		}
		hash, err := auth.HashPassword(*input.Password)
		if err != nil {
			return types.Neighbor{}, err
		}
		update.PasswordHash = &hash
	}

	neighbor, err := s.repo.Update(ctx, normalizeNeighborID(userID), update)
	if errors.Is(err, store.ErrReferenced) {
		return types.Neighbor{}, ErrHouseNotFound
	}
	return neighbor, mapNeighborError(err)
}

// Delete removes a neighbor without ledger history.
func (s *NeighborService) Delete(ctx context.Context, userID string) error {
	err := s.repo.Delete(ctx, normalizeNeighborID(userID))
	if errors.Is(err, store.ErrReferenced) {
		return ErrNeighborHasLedger
	}
	return mapNeighborError(err)
}

func normalizeNeighborID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func randomNeighborID() (string, error) {
	var buf [5]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	id := make([]byte, len(buf))
	for i := range 3 {
		id[i] = neighborIDLetters[int(buf[i])%len(neighborIDLetters)]
	}
	for i := 3; i < len(buf); i++ {
		id[i] = '0' + buf[i]%10
	}
	return string(id), nil
}

func validEmail(value *string) (*string, error) {
	email, err := optionalText("email", value, maxEmailLength)
	if err != nil || email == nil {
		return email, err
	}
	at := strings.Index(*email, "@")
	if at < 1 || at == len(*email)-1 || strings.ContainsAny(*email, " \t") {
		return nil, invalid("email is not valid")
	}
	return email, nil
}

// clearable turns a nil optional into a pointer to "" so the store clears
// the column.
func clearable(value *string) *string {
	if value == nil {
		empty := ""
		return &empty
	}
	return value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func mapNeighborError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNeighborNotFound
	case errors.Is(err, store.ErrConflict):
		if store.Constraint(err) == emailConstraint {
			return ErrEmailTaken
		}
		return ErrNeighborExists
	case errors.Is(err, store.ErrCheckViolation):
		return invalid("user_id must be three letters followed by two digits")
	case errors.Is(err, store.ErrNoChanges):
		return invalid("no fields to update")
	default:
		return fmt.Errorf("neighbors: %w", err)
	}
}
