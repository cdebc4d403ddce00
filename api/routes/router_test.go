package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shipment-console/api/controllers"
	"github.com/angelmondragon/shipment-console/internal/fulfillment"
	pkgAuth "github.com/angelmondragon/shipment-console/pkg/auth"
	"github.com/angelmondragon/shipment-console/pkg/config"
	"github.com/angelmondragon/shipment-console/pkg/db/models"
	"github.com/angelmondragon/shipment-console/pkg/enums"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryStore struct {
	mu      sync.Mutex
	values  map[string]string
	counts  map[string]int64
	blocked bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[scope]++
	if m.blocked {
		return false, m.counts[scope], nil
	}
	return m.counts[scope] <= limit, m.counts[scope], nil
}

type stubDeadLetters struct{}

func (stubDeadLetters) List(context.Context, int, enums.OutboxDLQErrorReason) ([]models.OutboxDLQ, error) {
	return nil, nil
}

type shippedOrderGateway struct {
	mu      sync.Mutex
	cancels int
}

func (g *shippedOrderGateway) SearchOrders(context.Context, fulfillment.SearchQuery) ([]fulfillment.OrderSummary, error) {
	return []fulfillment.OrderSummary{{OrderDate: "2025-01-02", OrderSeq: 7, VendorID: "V1", StoreID: "S1", TotalOrderQty: 5}}, nil
}

func (g *shippedOrderGateway) GetOrderDetails(context.Context, string, int, string) ([]fulfillment.RawLine, error) {
	id := int64(3)
	return []fulfillment.RawLine{{
		OrderDate: "2025-01-02", OrderSeq: 7, LineNo: 1, VendorID: "V1",
		OrderQty: 5, OutboundQty: 5, OutboundDate: "2025-01-05", EstimatedArrival: "2025-01-07",
		ShipMethod: "truck", LogisticsCompany: "Acme",
		ExpiryID: &id, ExpiryDate: "2026-06-30", ExpiryQty: 5,
	}}, nil
}

func (g *shippedOrderGateway) ConfirmShipment(context.Context, fulfillment.ConfirmRequest) (fulfillment.Result, error) {
	return fulfillment.Result{Success: true}, nil
}

func (g *shippedOrderGateway) CancelShipment(context.Context, fulfillment.CancelRequest) (fulfillment.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels++
	return fulfillment.Result{Success: true}, nil
}

var routerJWT = config.JWTConfig{Secret: "secret", Issuer: "shipment-console"}

func testRouter(t *testing.T, gw fulfillment.Gateway, store *memoryStore) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	console, err := fulfillment.NewConsole(fulfillment.ConsoleParams{Gateway: gw, Logger: logg})
	require.NoError(t, err)

	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: routerJWT,
		HTTP: config.HTTPConfig{
			CORSOrigins:        []string{"http://localhost:3000"},
			MutationRateWindow: time.Minute,
			MutationRateLimit:  5,
		},
	}
	return NewRouter(cfg, logg, Dependencies{
		Console:     console,
		Checks:      map[string]controllers.Pinger{"db": stubPinger{}},
		Store:       store,
		DeadLetters: stubDeadLetters{},
	})
}

func bearer(t *testing.T, payload pkgAuth.AccessTokenPayload) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(routerJWT, time.Now(), time.Hour, payload)
	require.NoError(t, err)
	return "Bearer " + token
}

func send(h http.Handler, method, path, auth, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var vendorToken = pkgAuth.AccessTokenPayload{UserID: "u-1", VendorID: "V1", Role: enums.OperatorRoleVendor}

func openShippedDetail(t *testing.T, h http.Handler, auth string) string {
	t.Helper()
	rec := send(h, http.MethodPost, "/api/v1/console/sessions/", auth, "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data struct {
			Session struct {
				ID string `json:"id"`
			} `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Data.Session.ID
	require.NotEmpty(t, id)

	base := "/api/v1/console/sessions/" + id
	rec = send(h, http.MethodPost, base+"/search", auth, `{"date_from":"2025-01-01","date_to":"2025-01-10","status":"shipped"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = send(h, http.MethodPost, base+"/detail", auth, `{"order_date":"2025-01-02","order_seq":7}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return base
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	h := testRouter(t, &shippedOrderGateway{}, newMemoryStore())

	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/health/live", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/health/ready", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/metrics", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/api/public/ping", "", "", nil).Code)
}

func TestConsoleRequiresToken(t *testing.T) {
	h := testRouter(t, &shippedOrderGateway{}, newMemoryStore())

	assert.Equal(t, http.StatusUnauthorized, send(h, http.MethodPost, "/api/v1/console/sessions/", "", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, send(h, http.MethodGet, "/api/ping", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/api/ping", bearer(t, vendorToken), "", nil).Code)
}

func TestCancelRequiresIdempotencyKey(t *testing.T) {
	gw := &shippedOrderGateway{}
	h := testRouter(t, gw, newMemoryStore())
	auth := bearer(t, vendorToken)
	base := openShippedDetail(t, h, auth)

	rec := send(h, http.MethodPost, base+"/cancel", auth, `{"confirmed":true}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, gw.cancels)
}

func TestCancelReplaysCompletedResponse(t *testing.T) {
	gw := &shippedOrderGateway{}
	h := testRouter(t, gw, newMemoryStore())
	auth := bearer(t, vendorToken)
	base := openShippedDetail(t, h, auth)
	key := map[string]string{"Idempotency-Key": "cancel-1"}

	first := send(h, http.MethodPost, base+"/cancel", auth, `{"confirmed":true}`, key)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := send(h, http.MethodPost, base+"/cancel", auth, `{"confirmed":true}`, key)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, gw.cancels)

	reused := send(h, http.MethodPost, base+"/cancel", auth, `{"confirmed":false}`, key)
	assert.Equal(t, http.StatusConflict, reused.Code)
}

func TestConfirmIsRateLimited(t *testing.T) {
	store := newMemoryStore()
	store.blocked = true
	h := testRouter(t, &shippedOrderGateway{}, store)
	auth := bearer(t, vendorToken)
	base := openShippedDetail(t, h, auth)

	rec := send(h, http.MethodPost, base+"/confirm", auth, `{}`, map[string]string{"Idempotency-Key": "k"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestDeadLettersRequireAdmin(t *testing.T) {
	h := testRouter(t, &shippedOrderGateway{}, newMemoryStore())
	path := "/api/admin/v1/outbox/dead-letters"

	assert.Equal(t, http.StatusForbidden, send(h, http.MethodGet, path, bearer(t, vendorToken), "", nil).Code)

	admin := bearer(t, pkgAuth.AccessTokenPayload{UserID: "admin-1", Role: enums.OperatorRoleAdmin})
	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, path, admin, "", nil).Code)
}
