package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hoa-ledger/apiserver/internal/auth"
	"github.com/hoa-ledger/apiserver/internal/store/storetest"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	Type    string
	Subject string
	Data    any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType, subject string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Subject: subject, Data: data})
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

type counter struct{ total float64 }

func (c *counter) Add(v float64) { c.total += v }

type fixture struct {
	db           *storetest.DB
	events       *recordingPublisher
	generated    *counter
	tokens       *auth.TokenManager
	auth         *AuthService
	users        *UserService
	houses       *HouseService
	neighbors    *NeighborService
	neighborhood *NeighborhoodService
	ledger       *LedgerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storetest.New()
	events := &recordingPublisher{}
	generated := &counter{}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return &fixture{
		db:           db,
		events:       events,
		generated:    generated,
		tokens:       tokens,
		auth:         NewAuthService(db.Users(), db.Neighbors(), tokens),
		users:        NewUserService(db.Users()),
		houses:       NewHouseService(db.Houses()),
		neighbors:    NewNeighborService(db.Neighbors(), db.Houses(), events),
		neighborhood: NewNeighborhoodService(db.Neighborhood()),
		ledger:       NewLedgerService(db.Ledger(), db.Neighbors(), db.Neighborhood(), events, generated),
	}
}

func (f *fixture) house(t *testing.T, id string) types.House {
	t.Helper()
	house, err := f.houses.Create(context.Background(), HouseInput{ID: &id})
	require.NoError(t, err)
	return house
}

func (f *fixture) neighbor(t *testing.T, userID, houseID string) types.Neighbor {
	t.Helper()
	password, name := "pw", "Neighbor "+userID
	neighbor, err := f.neighbors.Create(context.Background(), NeighborInput{
		UserID:   &userID,
		Password: &password,
		Name:     &name,
		HouseID:  &houseID,
	})
	require.NoError(t, err)
	return neighbor
}

func ptr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
