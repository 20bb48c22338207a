// Package storetest provides in-memory repositories that enforce the same
// constraints as the Postgres schema, for service and handler tests.
package storetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hoa-ledger/apiserver/internal/storage"
	"github.com/hoa-ledger/apiserver/internal/store"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/shopspring/decimal"
)

// DB is the shared state behind the repositories.
type DB struct {
	mu sync.Mutex

	users      map[int]types.User
	nextUserID int

	houses    map[string]types.House
	neighbors map[string]types.Neighbor
	config    *types.Neighborhood

	charges      map[int64]types.Charge
	nextChargeID int64

	payments      map[int64]types.Payment
	nextPaymentID int64

	// Fail, when set, is returned by every repository call.
	Fail error
}

func New() *DB {
	return &DB{
		users:     make(map[int]types.User),
		houses:    make(map[string]types.House),
		neighbors: make(map[string]types.Neighbor),
		charges:   make(map[int64]types.Charge),
		payments:  make(map[int64]types.Payment),
	}
}

func (db *DB) Users() *UserRepository { return &UserRepository{db: db} }
func (db *DB) Houses() *HouseRepository { return &HouseRepository{db: db} }
func (db *DB) Neighbors() *NeighborRepository { return &NeighborRepository{db: db} }
func (db *DB) Neighborhood() *NeighborhoodRepository { return &NeighborhoodRepository{db: db} }
func (db *DB) Ledger() *LedgerRepository { return &LedgerRepository{db: db} }

func (db *DB) lock() error {
	db.mu.Lock()
	if db.Fail != nil {
		db.mu.Unlock()
		return db.Fail
	}
	return nil
}

func conflict(kind error, constraint string) error {
	return &store.ConstraintError{Kind: kind, Constraint: constraint}
}

func blankToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	v := *value
	return &v
}

type UserRepository struct{ db *DB }

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	if err := r.db.lock(); err != nil {
		return nil, err
	}
	defer r.db.mu.Unlock()
	users := make([]types.User, 0, len(r.db.users))
	for _, user := range r.db.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	if err := r.db.lock(); err != nil {
		return types.User{}, err
	}
	defer r.db.mu.Unlock()
	user, ok := r.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	if err := r.db.lock(); err != nil {
		return types.User{}, err
	}
	defer r.db.mu.Unlock()
	for _, user := range r.db.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if err := r.db.lock(); err != nil {
		return types.User{}, err
	}
	defer r.db.mu.Unlock()
	if r.db.usernameTaken(user.Username, 0) {
		return types.User{}, conflict(store.ErrConflict, "users_username_key")
	}
	r.db.nextUserID++
	now := time.Now()
	user.ID = r.db.nextUserID
	user.CreatedAt, user.UpdatedAt = now, now
	r.db.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, id int, update types.UserUpdate) (types.User, error) {
	if update.Username == nil && update.Role == nil && update.PasswordHash == nil {
		return types.User{}, store.ErrNoChanges
	}
	if err := r.db.lock(); err != nil {
		return types.User{}, err
	}
	defer r.db.mu.Unlock()
	user, ok := r.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if update.Username != nil {
		if r.db.usernameTaken(*update.Username, id) {
			return types.User{}, conflict(store.ErrConflict, "users_username_key")
		}
		user.Username = *update.Username
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.PasswordHash != nil {
		user.PasswordHash = *update.PasswordHash
	}
	user.UpdatedAt = time.Now()
	r.db.users[id] = user
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int) (types.User, error) {
	if err := r.db.lock(); err != nil {
		return types.User{}, err
	}
	defer r.db.mu.Unlock()
	user, ok := r.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	delete(r.db.users, id)
	return user, nil
}

func (db *DB) usernameTaken(username string, except int) bool {
	for id, user := range db.users {
		if id != except && user.Username == username {
			return true
		}
	}
	return false
}

type HouseRepository struct{ db *DB }

func (r *HouseRepository) List(ctx context.Context) ([]types.House, error) {
	if err := r.db.lock(); err != nil {
		return nil, err
	}
	defer r.db.mu.Unlock()
	houses := make([]types.House, 0, len(r.db.houses))
	for _, house := range r.db.houses {
		houses = append(houses, house)
	}
	sort.Slice(houses, func(i, j int) bool { return houses[i].ID < houses[j].ID })
	return houses, nil
}

func (r *HouseRepository) Get(ctx context.Context, id string) (types.House, error) {
	if err := r.db.lock(); err != nil {
		return types.House{}, err
	}
	defer r.db.mu.Unlock()
	house, ok := r.db.houses[id]
	if !ok {
		return types.House{}, store.ErrNotFound
	}
	return house, nil
}

func (r *HouseRepository) Create(ctx context.Context, house types.House) (types.House, error) {
	if err := r.db.lock(); err != nil {
		return types.House{}, err
	}
	defer r.db.mu.Unlock()
	if _, ok := r.db.houses[house.ID]; ok {
		return types.House{}, conflict(store.ErrConflict, "houses_pkey")
	}
	now := time.Now()
	house.CreatedAt, house.UpdatedAt = now, now
	r.db.houses[house.ID] = house
	return house, nil
}

func (r *HouseRepository) Update(ctx context.Context, id string, update types.HouseUpdate) (types.House, error) {
	if update.ID == nil && update.Owner == nil {
		return types.House{}, store.ErrNoChanges
	}
	if err := r.db.lock(); err != nil {
		return types.House{}, err
	}
	defer r.db.mu.Unlock()
	house, ok := r.db.houses[id]
	if !ok {
		return types.House{}, store.ErrNotFound
	}
	if update.Owner != nil {
		house.Owner = blankToNil(update.Owner)
	}
	if update.ID != nil && *update.ID != id {
		if _, taken := r.db.houses[*update.ID]; taken {
			return types.House{}, conflict(store.ErrConflict, "houses_pkey")
		}
		delete(r.db.houses, id)
		house.ID = *update.ID
		for userID, neighbor := range r.db.neighbors {
			if neighbor.HouseID == id {
				neighbor.HouseID = house.ID
				r.db.neighbors[userID] = neighbor
			}
		}
	}
	house.UpdatedAt = time.Now()
	r.db.houses[house.ID] = house
	return house, nil
}

func (r *HouseRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.lock(); err != nil {
		return err
	}
	defer r.db.mu.Unlock()
	if _, ok := r.db.houses[id]; !ok {
		return store.ErrNotFound
	}
	for _, neighbor := range r.db.neighbors {
		if neighbor.HouseID == id {
			return conflict(store.ErrReferenced, "neighbors_house_fk")
		}
	}
	delete(r.db.houses, id)
	return nil
}

type NeighborRepository struct{ db *DB }

func (r *NeighborRepository) List(ctx context.Context) ([]types.Neighbor, error) {
	if err := r.db.lock(); err != nil {
		return nil, err
	}
	defer r.db.mu.Unlock()
	neighbors := make([]types.Neighbor, 0, len(r.db.neighbors))
	for _, neighbor := range r.db.neighbors {
		neighbors = append(neighbors, neighbor)
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].UserID < neighbors[j].UserID })
	return neighbors, nil
}

func (r *NeighborRepository) Get(ctx context.Context, userID string) (types.Neighbor, error) {
	if err := r.db.lock(); err != nil {
		return types.Neighbor{}, err
	}
	defer r.db.mu.Unlock()
	neighbor, ok := r.db.neighbors[userID]
	if !ok {
		return types.Neighbor{}, store.ErrNotFound
	}
	return neighbor, nil
}

func (r *NeighborRepository) Exists(ctx context.Context, userID string) (bool, error) {
	if err := r.db.lock(); err != nil {
		return false, err
	}
	defer r.db.mu.Unlock()
	_, ok := r.db.neighbors[userID]
	return ok, nil
}

func (r *NeighborRepository) Create(ctx context.Context, neighbor types.Neighbor) (types.Neighbor, error) {
	if err := r.db.lock(); err != nil {
		return types.Neighbor{}, err
	}
	defer r.db.mu.Unlock()
	if _, ok := r.db.houses[neighbor.HouseID]; !ok {
		return types.Neighbor{}, fmt.Errorf("house %q: %w", neighbor.HouseID, store.ErrNotFound)
	}
	if _, ok := r.db.neighbors[neighbor.UserID]; ok {
		return types.Neighbor{}, conflict(store.ErrConflict, "neighbors_pkey")
	}
	neighbor.Email = blankToNil(neighbor.Email)
	neighbor.Phone = blankToNil(neighbor.Phone)
	if r.db.emailTaken(neighbor.Email, "") {
		return types.Neighbor{}, conflict(store.ErrConflict, "neighbors_email_key")
	}
	now := time.Now()
	neighbor.CreatedAt, neighbor.UpdatedAt = now, now
	r.db.neighbors[neighbor.UserID] = neighbor
	return neighbor, nil
}

func (r *NeighborRepository) Update(ctx context.Context, userID string, update types.NeighborUpdate) (types.Neighbor, error) {
	if update.Name == nil && update.HouseID == nil && update.Email == nil && update.Phone == nil && update.PasswordHash == nil {
		return types.Neighbor{}, store.ErrNoChanges
	}
	if err := r.db.lock(); err != nil {
		return types.Neighbor{}, err
	}
	defer r.db.mu.Unlock()
	neighbor, ok := r.db.neighbors[userID]
	if !ok {
		return types.Neighbor{}, store.ErrNotFound
	}
	if update.Name != nil {
		neighbor.Name = *update.Name
	}
	if update.HouseID != nil {
		if _, ok := r.db.houses[*update.HouseID]; !ok {
			return types.Neighbor{}, conflict(store.ErrReferenced, "neighbors_house_fk")
		}
		neighbor.HouseID = *update.HouseID
	}
	if update.Email != nil {
		neighbor.Email = blankToNil(update.Email)
		if r.db.emailTaken(neighbor.Email, userID) {
			return types.Neighbor{}, conflict(store.ErrConflict, "neighbors_email_key")
		}
	}
	if update.Phone != nil {
		neighbor.Phone = blankToNil(update.Phone)
	}
	if update.PasswordHash != nil {
		neighbor.PasswordHash = *update.PasswordHash
	}
	neighbor.UpdatedAt = time.Now()
	r.db.neighbors[userID] = neighbor
	return neighbor, nil
}

func (r *NeighborRepository) Delete(ctx context.Context, userID string) error {
	if err := r.db.lock(); err != nil {
		return err
	}
	defer r.db.mu.Unlock()
	if _, ok := r.db.neighbors[userID]; !ok {
		return store.ErrNotFound
	}
	for _, charge := range r.db.charges {
		if charge.UserID == userID {
			return conflict(store.ErrReferenced, "charges_neighbor_fk")
		}
	}
	for _, payment := range r.db.payments {
		if payment.UserID == userID {
			return conflict(store.ErrReferenced, "payments_neighbor_fk")
		}
	}
	delete(r.db.neighbors, userID)
	return nil
}

func (db *DB) emailTaken(email *string, except string) bool {
	if email == nil {
		return false
	}
	for userID, neighbor := range db.neighbors {
		if userID != except && neighbor.Email != nil && *neighbor.Email == *email {
			return true
		}
	}
	return false
}

type NeighborhoodRepository struct{ db *DB }

func (r *NeighborhoodRepository) Get(ctx context.Context) (types.Neighborhood, error) {
	if err := r.db.lock(); err != nil {
		return types.Neighborhood{}, err
	}
	defer r.db.mu.Unlock()
	if r.db.config == nil {
		return types.Neighborhood{}, store.ErrNotFound
	}
	return *r.db.config, nil
}

func (r *NeighborhoodRepository) Upsert(ctx context.Context, cfg types.Neighborhood) (types.Neighborhood, error) {
	if err := r.db.lock(); err != nil {
		return types.Neighborhood{}, err
	}
	defer r.db.mu.Unlock()
	cfg.UpdatedAt = time.Now()
	r.db.config = &cfg
	return cfg, nil
}

type LedgerRepository struct{ db *DB }

func (r *LedgerRepository) ListCharges(ctx context.Context, userID string) ([]types.Charge, error) {
	if err := r.db.lock(); err != nil {
		return nil, err
	}
	defer r.db.mu.Unlock()
	charges := make([]types.Charge, 0)
	for _, charge := range r.db.charges {
		if charge.UserID == userID {
			charges = append(charges, charge)
		}
	}
	sort.Slice(charges, func(i, j int) bool {
		if charges[i].Period == charges[j].Period {
			return charges[i].ID < charges[j].ID
		}
		return charges[i].Period.Before(charges[j].Period)
	})
	return charges, nil
}

func (r *LedgerRepository) CreateCharge(ctx context.Context, charge types.Charge) (types.Charge, error) {
	if err := r.db.lock(); err != nil {
		return types.Charge{}, err
	}
	defer r.db.mu.Unlock()
	return r.db.insertCharge(charge)
}

func (db *DB) insertCharge(charge types.Charge) (types.Charge, error) {
	if _, ok := db.neighbors[charge.UserID]; !ok {
		return types.Charge{}, conflict(store.ErrReferenced, "charges_neighbor_fk")
	}
	for _, existing := range db.charges {
		if existing.UserID == charge.UserID && existing.Period == charge.Period {
			return types.Charge{}, conflict(store.ErrConflict, "charges_user_period_uniq")
		}
	}
	db.nextChargeID++
	charge.ID = db.nextChargeID
	charge.CreatedAt = time.Now()
	db.charges[charge.ID] = charge
	return charge, nil
}

func (r *LedgerRepository) DeleteCharge(ctx context.Context, id int64) error {
	if err := r.db.lock(); err != nil {
		return err
	}
	defer r.db.mu.Unlock()
	if _, ok := r.db.charges[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.charges, id)
	return nil
}

func (r *LedgerRepository) GenerateCharges(ctx context.Context, period types.Period, amount decimal.Decimal, note string) (int64, error) {
	if err := r.db.lock(); err != nil {
		return 0, err
	}
	defer r.db.mu.Unlock()
	var created int64
	for userID := range r.db.neighbors {
		n := note
		_, err := r.db.insertCharge(types.Charge{UserID: userID, Period: period, Amount: amount, Note: &n})
		if err == nil {
			created++
		}
	}
	return created, nil
}

func (r *LedgerRepository) ListPayments(ctx context.Context, userID string) ([]types.Payment, error) {
	if err := r.db.lock(); err != nil {
		return nil, err
	}
	defer r.db.mu.Unlock()
	payments := make([]types.Payment, 0)
	for _, payment := range r.db.payments {
		if payment.UserID == userID {
			payments = append(payments, payment)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].ID > payments[j].ID
		}
		return payments[i].PaidAt.After(payments[j].PaidAt)
	})
	return payments, nil
}

func (r *LedgerRepository) GetPayment(ctx context.Context, id int64) (types.Payment, error) {
	if err := r.db.lock(); err != nil {
		return types.Payment{}, err
	}
	defer r.db.mu.Unlock()
	payment, ok := r.db.payments[id]
	if !ok {
		return types.Payment{}, store.ErrNotFound
	}
	return payment, nil
}

func (r *LedgerRepository) CreatePayment(ctx context.Context, payment types.Payment) (types.Payment, error) {
	if err := r.db.lock(); err != nil {
		return types.Payment{}, err
	}
	defer r.db.mu.Unlock()
	if _, ok := r.db.neighbors[payment.UserID]; !ok {
		return types.Payment{}, conflict(store.ErrReferenced, "payments_neighbor_fk")
	}
	if !payment.Amount.IsPositive() {
		return types.Payment{}, conflict(store.ErrCheckViolation, "payments_amount_positive_ck")
	}
	r.db.nextPaymentID++
	now := time.Now()
	payment.ID = r.db.nextPaymentID
	if payment.PaidAt.IsZero() {
		payment.PaidAt = now
	}
	payment.CreatedAt = now
	r.db.payments[payment.ID] = payment
	return payment, nil
}

func (r *LedgerRepository) SetPaymentReceipt(ctx context.Context, id int64, key string) error {
	if err := r.db.lock(); err != nil {
		return err
	}
	defer r.db.mu.Unlock()
	payment, ok := r.db.payments[id]
	if !ok {
		return store.ErrNotFound
	}
	payment.ReceiptKey = &key
	r.db.payments[id] = payment
	return nil
}

func (r *LedgerRepository) Totals(ctx context.Context, userID string) (charges, payments decimal.Decimal, err error) {
	if err := r.db.lock(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer r.db.mu.Unlock()
	charges, payments = decimal.Zero, decimal.Zero
	for _, charge := range r.db.charges {
		if charge.UserID == userID {
			charges = charges.Add(charge.Amount)
		}
	}
	for _, payment := range r.db.payments {
		if payment.UserID == userID {
			payments = payments.Add(payment.Amount)
		}
	}
	return charges, payments, nil
}

// Receipts is an in-memory receipt store.
type Receipts struct {
	mu      sync.Mutex
	objects map[string]storedObject
}

type storedObject struct {
	data        []byte
	contentType string
}

func NewReceipts() *Receipts {
	return &Receipts{objects: make(map[string]storedObject)}
}

func (r *Receipts) Save(ctx context.Context, userID string, paymentID int64, filename, contentType string, data []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := storage.ReceiptKey(userID, paymentID, fmt.Sprintf("r%d", len(r.objects)+1), filename)
	r.objects[key] = storedObject{data: append([]byte(nil), data...), contentType: contentType}
	return key, nil
}

func (r *Receipts) Open(ctx context.Context, key string) (*storage.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (r *Receipts) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, key)
	return nil
}

// Len returns the number of stored objects.
func (r *Receipts) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}
