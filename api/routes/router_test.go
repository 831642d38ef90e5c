package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	pkgAuth "github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryCache struct {
	data map[string]string
	incr map[string]int64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}, incr: map[string]int64{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryCache) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key], _ = value.(string)
	return nil
}

func (m *memoryCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryCache) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("test:idempotency:%s:%s", scope, id)
}

func (m *memoryCache) RateLimitKey(scope string) string { return "test:rl:" + scope }

func (m *memoryCache) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.incr[key]++
	return m.incr[key], nil
}

func (m *memoryCache) Ping(context.Context) error { return nil }

type stubProducts struct {
	products.Service
	listed int
}

func (s *stubProducts) List(context.Context, products.ListQuery) (*products.ListResult, error) {
	s.listed++
	return &products.ListResult{Products: []products.ProductDTO{}}, nil
}

type stubOrders struct {
	orders.Service
	created int
}

func (s *stubOrders) CreateOrder(_ context.Context, actor pkgAuth.Actor, in orders.CreateOrderInput) (*orders.OrderDTO, error) {
	s.created++
	return &orders.OrderDTO{ID: uuid.New(), BuyerID: actor.UserID, Status: enums.OrderStatusPlaced}, nil
}

func (s *stubOrders) ListForSeller(context.Context, pkgAuth.Actor, orders.ListParams) (*orders.ListResult, error) {
	return &orders.ListResult{Orders: []orders.OrderDTO{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "bazaar", ExpirationMinutes: 15},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "router-test", Output: &bytes.Buffer{}})
}

func mintToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func orderBody() []byte {
	payload := map[string]any{
		"items": []map[string]any{{"product_id": uuid.NewString(), "quantity": 1}},
		"shipping_address": map[string]any{
			"name":        "Asha",
			"phone":       "9876543210",
			"line1":       "12 MG Road",
			"city":        "Pune",
			"state":       "MH",
			"postal_code": "411001",
		},
		"payment_method": "cod",
	}
	body, _ := json.Marshal(payload)
	return body
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), stubPinger{}, nil, Services{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyReportsDatabaseFailure(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), stubPinger{err: fmt.Errorf("down")}, nil, Services{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code < http.StatusInternalServerError {
		t.Fatalf("expected 5xx got %d", resp.Code)
	}
}

func TestProductBrowseIsPublic(t *testing.T) {
	svc := &stubProducts{}
	router := NewRouter(testConfig(), testLogger(), stubPinger{}, nil, Services{Products: svc})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?category=ethnic", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.listed != 1 {
		t.Fatalf("expected list to be called once, got %d", svc.listed)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), stubPinger{}, nil, Services{})

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/notifications"},
		{http.MethodGet, "/api/v1/bargains/my"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/seller/orders"},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestSellerRoutesRejectBuyers(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, testLogger(), stubPinger{}, nil, Services{Orders: &stubOrders{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/seller/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/seller/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleSeller))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestBuyerOnlyOrderPlacement(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, testLogger(), stubPinger{}, nil, Services{Orders: &stubOrders{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(orderBody()))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleSeller))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestOrderPlacementRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrders{}
	router := NewRouter(cfg, testLogger(), stubPinger{}, newMemoryCache(), Services{Orders: svc})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(orderBody()))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.created != 0 {
		t.Fatalf("order should not be created without a key")
	}
}

func TestOrderPlacementReplaysUnderSameKey(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrders{}
	router := NewRouter(cfg, testLogger(), stubPinger{}, newMemoryCache(), Services{Orders: svc})
	token := mintToken(t, cfg, enums.UserRoleBuyer)
	body := orderBody()

	var first []byte
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "order-once")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
		if i == 0 {
			first = resp.Body.Bytes()
		} else if !bytes.Equal(first, resp.Body.Bytes()) {
			t.Fatalf("replayed body differs")
		}
	}
	if svc.created != 1 {
		t.Fatalf("expected one order created, got %d", svc.created)
	}
}
