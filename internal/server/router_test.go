package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/hoa-ledger/apiserver/internal/auth"
	"github.com/hoa-ledger/apiserver/internal/handlers"
	"github.com/hoa-ledger/apiserver/internal/metrics"
	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/hoa-ledger/apiserver/internal/store/storetest"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var neighborIDFormat = regexp.MustCompile(`^[A-Z]{3}[0-9]{2}$`)

type testAPI struct {
	t        *testing.T
	handler  http.Handler
	db       *storetest.DB
	tokens   *auth.TokenManager
	receipts *storetest.Receipts
	admin    string
}

func newTestAPI(t *testing.T, withReceipts bool) *testAPI {
	t.Helper()
	db := storetest.New()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	var receiptStore services.ReceiptStore
	var receipts *storetest.Receipts
	if withReceipts {
		receipts = storetest.NewReceipts()
		receiptStore = receipts
	}

	m := metrics.New()
	repos := Repositories{
		Users:        db.Users(),
		Houses:       db.Houses(),
		Neighbors:    db.Neighbors(),
		Neighborhood: db.Neighborhood(),
		Ledger:       db.Ledger(),
	}
	svc := NewServices(repos, tokens, nil, receiptStore, m.ChargesGenerated)
	router := NewRouter(svc, tokens, RouterOptions{
		Logger:      zerolog.Nop(),
		Metrics:     m,
		CORSOrigins: []string{"http://localhost:5173"},
	})

	hash, err := auth.HashPassword("admin")
	require.NoError(t, err)
	_, err = db.Users().Create(context.Background(), types.User{Username: "admin", PasswordHash: hash, Role: types.RoleAdmin})
	require.NoError(t, err)

	api := &testAPI{t: t, handler: router, db: db, tokens: tokens, receipts: receipts}
	api.admin = api.login("/login", map[string]string{"username": "admin", "password": "admin"}).Token
	return api
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(path string, body map[string]string) handlers.LoginResponse {
	a.t.Helper()
	rec := a.do(http.MethodPost, path, "", body)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[handlers.LoginResponse](a.t, rec)
}

func (a *testAPI) createHouse(id string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/houses", a.admin, map[string]string{"id": id})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (a *testAPI) createNeighbor(body map[string]string) types.Neighbor {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/neighbors", a.admin, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[types.Neighbor](a.t, rec)
}

func (a *testAPI) neighborToken(userID, password string) string {
	a.t.Helper()
	return a.login("/neighbor/login", map[string]string{"user_id": userID, "password": password}).Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value), rec.Body.String())
	return value
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[handlers.ErrorResponse](t, rec).Error
}

func TestRegisterThenLogin(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.do(http.MethodPost, "/register", "", map[string]string{"username": "maria", "password": "pw1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[handlers.UserResponse](t, rec)
	assert.Equal(t, "maria", created.User.Username)
	assert.Equal(t, types.RoleUser, created.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	session := api.login("/login", map[string]string{"username": "maria", "password": "pw1"})
	assert.Equal(t, types.RoleUser, session.Role)

	claims, err := api.tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, types.RoleUser, claims.Role)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	api := newTestAPI(t, false)

	wrongPassword := api.do(http.MethodPost, "/login", "", map[string]string{"username": "admin", "password": "nope"})
	unknown := api.do(http.MethodPost, "/login", "", map[string]string{"username": "ghost", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknown.Body.String())
}

func TestDuplicateRegistration(t *testing.T) {
	api := newTestAPI(t, false)

	body := map[string]string{"username": "maria", "password": "first"}
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/register", "", body).Code)

	rec := api.do(http.MethodPost, "/register", "", map[string]string{"username": "maria", "password": "second"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	api.login("/login", body)
}

func TestRegisterAdminNeedsAdminToken(t *testing.T) {
	api := newTestAPI(t, false)
	body := map[string]string{"username": "boss", "password": "pw", "role": "admin"}

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/register", "", body).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/register", "garbage", body).Code)

	rec := api.do(http.MethodPost, "/register", api.admin, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, types.RoleAdmin, decodeBody[handlers.UserResponse](t, rec).User.Role)
}

func TestTokenChecks(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.do(http.MethodGet, "/houses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/houses", "not-a-jwt", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	expired := auth.NewTokenManager("test-secret", time.Nanosecond)
	token, err := expired.Issue(auth.UserPrincipal(types.User{ID: 1, Username: "admin", Role: types.RoleAdmin}))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/houses", token, nil).Code)

	other := auth.NewTokenManager("other-secret", time.Hour)
	token, err = other.Issue(auth.UserPrincipal(types.User{ID: 1, Username: "admin", Role: types.RoleAdmin}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/houses", token, nil).Code)
}

func TestRoleMatrix(t *testing.T) {
	api := newTestAPI(t, false)
	api.createHouse("12")
	neighbor := api.createNeighbor(map[string]string{"user_id": "ABC12", "password": "pw", "name": "Ana", "house_id": "12"})
	neighborToken := api.neighborToken(neighbor.UserID, "pw")

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/register", "", map[string]string{"username": "maria", "password": "pw"}).Code)
	userToken := api.login("/login", map[string]string{"username": "maria", "password": "pw"}).Token

	for _, path := range []string{"/houses", "/neighbors", "/neighborhood"} {
		assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, path, neighborToken, nil).Code, path)
		assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, path, userToken, nil).Code, path)
	}
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/me/balance", api.admin, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/me/balance", userToken, nil).Code)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/users", userToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/users/1", userToken, nil).Code)
}

func TestUserCRUD(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.do(http.MethodPost, "/users", api.admin, map[string]string{"username": "clerk", "password": "pw"})
	require.Equal(t, http.StatusCreated, rec.Code)
	user := decodeBody[handlers.UserResponse](t, rec).User

	path := "/users/" + itoa(user.ID)
	rec = api.do(http.MethodPut, path, api.admin, map[string]string{"username": "clerk2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "clerk2", decodeBody[types.User](t, rec).Username)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPut, path, api.admin, map[string]string{}).Code)

	rec = api.do(http.MethodDelete, path, api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decodeBody[handlers.DeletedUserResponse](t, rec)
	assert.Equal(t, user.ID, deleted.Deleted.ID)
	assert.Equal(t, "clerk2", deleted.Deleted.Username)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, api.admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/users/abc", api.admin, nil).Code)
}

func TestNeighborIDValidation(t *testing.T) {
	api := newTestAPI(t, false)
	api.createHouse("12")

	rec := api.do(http.MethodPost, "/neighbors", api.admin, map[string]string{"user_id": "AB123", "password": "pw", "name": "Ana", "house_id": "12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	neighbor := api.createNeighbor(map[string]string{"user_id": "abc12", "password": "pw", "name": "Ana", "house_id": "12"})
	assert.Equal(t, "ABC12", neighbor.UserID)

	rec = api.do(http.MethodPost, "/neighbors", api.admin, map[string]string{"user_id": "ABC12", "password": "pw", "name": "Ben", "house_id": "12"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestNeighborNeedsExistingHouse(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.do(http.MethodPost, "/neighbors", api.admin, map[string]string{"user_id": "ABC12", "password": "pw", "name": "Ana", "house_id": "99"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "house not found", errorMessage(t, rec))

	rec = api.do(http.MethodGet, "/neighbors", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]types.Neighbor](t, rec))
}

func TestHouseInUseCannotBeDeleted(t *testing.T) {
	api := newTestAPI(t, false)
	api.createHouse("12")
	api.createNeighbor(map[string]string{"user_id": "ABC12", "password": "pw", "name": "Ana", "house_id": "12"})

	rec := api.do(http.MethodDelete, "/houses/12", api.admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "house is in use", errorMessage(t, rec))

	rec = api.do(http.MethodGet, "/neighbors/ABC12", api.admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/neighbors/ABC12", api.admin, nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/houses/12", api.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/houses/12", api.admin, nil).Code)
}

func TestHouseUpdate(t *testing.T) {
	api := newTestAPI(t, false)
	api.createHouse("12")

	rec := api.do(http.MethodPut, "/houses/12", api.admin, map[string]string{"owner": "Lopez"})
	require.Equal(t, http.StatusOK, rec.Code)
	house := decodeBody[types.House](t, rec)
	require.NotNil(t, house.Owner)
	assert.Equal(t, "Lopez", *house.Owner)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPut, "/houses/12", api.admin, map[string]string{}).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/houses", api.admin, map[string]string{"id": "12"}).Code)
}

func TestBalanceIsChargesMinusPayments(t *testing.T) {
	api := newTestAPI(t, false)
	api.createHouse("12")
	api.createNeighbor(map[string]string{"user_id": "ABC12", "password": "pw", "name": "Ana", "house_id": "12"})
	token := api.neighborToken("ABC12", "pw")

	rec := api.do(http.MethodGet, "/me/balance", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[types.Balance](t, rec).Balance.IsZero())

	for _, charge := range []map[string]any{
		{"user_id": "ABC12", "period": "2025-01-01", "amount": 100.10},
		{"user_id": "ABC12", "period": "2025-02-01", "amount": "0.20"},
	} {
		require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/charges", api.admin, charge).Code)
	}
	rec = api.do(http.MethodPost, "/charges", api.admin, map[string]any{"user_id": "ABC12", "period": "2025-01-01", "amount": 5})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/me/payments", token, map[string]any{"amount": 0.1})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodGet, "/me/balance", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balance := decodeBody[types.Balance](t, rec)
	assert.True(t, balance.TotalCharges.Equal(decimal.RequireFromString("100.30")), balance.TotalCharges.String())
	assert.True(t, balance.TotalPayments.Equal(decimal.RequireFromString("0.10")))
	assert.True(t, balance.Balance.Equal(decimal.RequireFromString("100.20")), balance.Balance.String())

	rec = api.do(http.MethodGet, "/neighbors/abc12/balance", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[types.Balance](t, rec).Balance.Equal(balance.Balance))
}

func TestPaymentAmountValidation(t *testing.T) {
	api := newTestAPI(t, false)
	api.createHouse("12")
	api.createNeighbor(map[string]string{"user_id": "ABC12", "password": "pw", "name": "Ana", "house_id": "12"})
	token := api.neighborToken("ABC12", "pw")

	for _, amount := range []any{0, -5, "abc"} {
		rec := api.do(http.MethodPost, "/me/payments", token, map[string]any{"amount": amount})
		assert.Equal(t, http.StatusBadRequest, rec.Code, amount)
	}

	rec := api.do(http.MethodPost, "/me/payments", token, map[string]any{"amount": 25.50, "method": "cash"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[handlers.PaymentResponse](t, rec)
	assert.Equal(t, "ABC12", created.Payment.UserID)
	assert.True(t, created.Balance.Balance.Equal(decimal.RequireFromString("-25.5")))

	rec = api.do(http.MethodGet, "/me/balance", token, nil)
	assert.True(t, decodeBody[types.Balance](t, rec).TotalPayments.Equal(decimal.RequireFromString("25.50")))

	rec = api.do(http.MethodGet, "/me/payments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Payment](t, rec), 1)
}

func TestPeriodDues(t *testing.T) {
	api := newTestAPI(t, false)
	api.createHouse("12")
	api.createNeighbor(map[string]string{"user_id": "ABC12", "password": "pw", "name": "Ana", "house_id": "12"})
	token := api.neighborToken("ABC12", "pw")

	for _, period := range []string{"2025-01-01", "2025-02-01"} {
		rec := api.do(http.MethodPost, "/charges", api.admin, map[string]any{"user_id": "ABC12", "period": period, "amount": 50})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/me/payments", token, map[string]any{"amount": 70}).Code)

	rec := api.do(http.MethodGet, "/me/period-dues", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dues := decodeBody[[]types.PeriodDue](t, rec)
	require.Len(t, dues, 1)
	assert.Equal(t, "2025-02-01", dues[0].Period.String())
	assert.True(t, dues[0].DueAmount.Equal(decimal.NewFromInt(30)))

	rec = api.do(http.MethodGet, "/me/period-dues?period=2025-01-01", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/me/period-dues?period=2025-01-15", token, nil).Code)
}

func TestNeighborhoodConfigAndChargeGeneration(t *testing.T) {
	api := newTestAPI(t, false)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/neighborhood", api.admin, nil).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/charges/generate", api.admin, nil).Code)

	rec := api.do(http.MethodPost, "/neighborhood", api.admin, map[string]any{"name": "Los Pinos", "periodicity": "Semanal", "amount": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.PeriodicityWeekly, decodeBody[types.Neighborhood](t, rec).Periodicity)

	rec = api.do(http.MethodPost, "/neighborhood", api.admin, map[string]any{"name": "Los Pinos", "periodicity": "daily", "amount": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	api.createHouse("12")
	api.createNeighbor(map[string]string{"user_id": "ABC12", "password": "pw", "name": "Ana", "house_id": "12"})
	api.createNeighbor(map[string]string{"user_id": "XYZ99", "password": "pw", "name": "Ben", "house_id": "12"})

	body := map[string]string{"period": "2025-03-01"}
	rec = api.do(http.MethodPost, "/charges/generate", api.admin, body)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[services.GenerateResult](t, rec)
	assert.EqualValues(t, 2, result.Created)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(50)), result.Amount.String())

	rec = api.do(http.MethodPost, "/charges/generate", api.admin, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody[services.GenerateResult](t, rec).Created)

	rec = api.do(http.MethodGet, "/neighbors/ABC12/charges", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	charges := decodeBody[[]types.Charge](t, rec)
	require.Len(t, charges, 1)

	assert.Equal(t, http.StatusConflict, api.do(http.MethodDelete, "/neighbors/ABC12", api.admin, nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/charges/"+itoa64(charges[0].ID), api.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/charges/"+itoa64(charges[0].ID), api.admin, nil).Code)
}

func TestEndToEndNeighborOnboarding(t *testing.T) {
	api := newTestAPI(t, false)
	api.createHouse("12")

	neighbor := api.createNeighbor(map[string]string{"password": "secret", "name": "Ana", "house_id": "12"})
	assert.Regexp(t, neighborIDFormat, neighbor.UserID)

	session := api.login("/neighbor/login", map[string]string{"user_id": neighbor.UserID, "password": "secret"})
	assert.Equal(t, types.RoleNeighbor, session.Role)
	assert.Equal(t, "Ana", session.Name)

	session = api.login("/login", map[string]string{"username": neighbor.UserID, "password": "secret"})
	assert.Equal(t, types.RoleNeighbor, session.Role)
}

func TestReceiptsDisabled(t *testing.T) {
	api := newTestAPI(t, false)
	api.createHouse("12")
	api.createNeighbor(map[string]string{"user_id": "ABC12", "password": "pw", "name": "Ana", "house_id": "12"})
	token := api.neighborToken("ABC12", "pw")

	rec := api.do(http.MethodPut, "/me/payments/1/receipt", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodGet, "/me/payments/1/receipt", token, nil).Code)
}

func TestReceiptUploadAndDownload(t *testing.T) {
	api := newTestAPI(t, true)
	api.createHouse("12")
	api.createNeighbor(map[string]string{"user_id": "ABC12", "password": "pw", "name": "Ana", "house_id": "12"})
	api.createNeighbor(map[string]string{"user_id": "XYZ99", "password": "pw", "name": "Ben", "house_id": "12"})
	ana := api.neighborToken("ABC12", "pw")
	ben := api.neighborToken("XYZ99", "pw")

	rec := api.do(http.MethodPost, "/me/payments", ana, map[string]any{"amount": 10})
	require.Equal(t, http.StatusCreated, rec.Code)
	paymentPath := "/me/payments/" + itoa64(decodeBody[handlers.PaymentResponse](t, rec).Payment.ID) + "/receipt"

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	assert.Equal(t, http.StatusNotFound, api.upload(paymentPath, ben, "r.png", png).Code)
	assert.Equal(t, http.StatusBadRequest, api.upload(paymentPath, ana, "r.txt", []byte("plain text")).Code)

	rec = api.upload(paymentPath, ana, "r.png", png)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, decodeBody[types.Payment](t, rec).ReceiptKey)
	assert.Equal(t, 1, api.receipts.Len())

	rec = api.do(http.MethodGet, paymentPath, ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, paymentPath, ben, nil).Code)
}

func (a *testAPI) upload(path, token, filename string, data []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("receipt", filename)
	require.NoError(a.t, err)
	_, err = part.Write(data)
	require.NoError(a.t, err)
	require.NoError(a.t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hoa_http_requests_total{method="POST",route="/login",status="200"}`)

	rec = api.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/houses", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
