package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
		delete(f.ttls, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func orderRequest(key, body string) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/v1/orders", "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestMatchRoute(t *testing.T) {
	week := 7 * 24 * time.Hour
	tests := []struct {
		name    string
		method  string
		path    string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"place order", http.MethodPost, "/api/v1/orders", "/api/v1/orders", week, true},
		{"cancel by pattern", http.MethodPost, "/api/v1/orders/42/cancel", "/api/v1/orders/{orderId}/cancel", week, true},
		{"payment by path", http.MethodPost, "/api/v1/orders/456/payment", "/api/*", week, true},
		{"propose bargain", http.MethodPost, "/api/v1/bargains", "/api/v1/bargains", 24 * time.Hour, true},
		{"bargain message", http.MethodPost, "/api/v1/bargains/9/messages", "/api/v1/bargains/{bargainId}/messages", 0, false},
		{"list orders", http.MethodGet, "/api/v1/orders", "/api/v1/orders", 0, false},
		{"login", http.MethodPost, "/api/v1/auth/login", "/api/v1/auth/login", 0, false},
		{"empty segment", http.MethodPost, "/api/v1/orders//cancel", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithPattern(tt.method, tt.path, tt.pattern, nil)
			route, ok := matchRoute(DefaultIdempotentRoutes(), req)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, route.TTL)
			}
		})
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), nil)(handler).ServeHTTP(resp, orderRequest("", `{"foo":"bar"}`))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, called, "handler must not run without a key")
}

func TestIdempotencyPassesThroughUnlistedRoutes(t *testing.T) {
	resp := httptest.NewRecorder()
	req := requestWithPattern(http.MethodPost, "/api/v1/auth/login", "/api/v1/auth/login", strings.NewReader(`{}`))
	Idempotency(newFakeStore(), nil)(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, orderRequest("abc", `{"foo":"bar"}`))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(replayHeader))

	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, orderRequest("abc", `{"foo":"bar"}`))
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get(replayHeader))
	assert.JSONEq(t, `{"ok":true}`, replay.Body.String())
	assert.Equal(t, 1, calls)

	for key, ttl := range store.ttls {
		assert.Equal(t, 7*24*time.Hour, ttl, key)
	}
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)

	mw(okHandler()).ServeHTTP(httptest.NewRecorder(), orderRequest("xyz", `{"foo":"bar"}`))

	resp := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(resp, orderRequest("xyz", `{"foo":"diff"}`))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, resp))
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)

	inner := httptest.NewRecorder()
	var duplicate *httptest.ResponseRecorder
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if duplicate == nil {
			duplicate = httptest.NewRecorder()
			mw(okHandler()).ServeHTTP(duplicate, orderRequest("dup", `{}`))
		}
		w.WriteHeader(http.StatusCreated)
	})
	mw(handler).ServeHTTP(inner, orderRequest("dup", `{}`))

	assert.Equal(t, http.StatusCreated, inner.Code)
	require.NotNil(t, duplicate)
	assert.Equal(t, http.StatusConflict, duplicate.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, duplicate))
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, orderRequest("retry-me", `{"a":1}`))
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Empty(t, store.data, "failed attempt must not hold the key")

	second := httptest.NewRecorder()
	mw(handler).ServeHTTP(second, orderRequest("retry-me", `{"a":1}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
	assert.Len(t, store.data, 1)
}

func TestIdempotencyKeysAreScopedPerPath(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/api/v1/orders/1/cancel", "/api/v1/orders/2/cancel"} {
		req := requestWithPattern(http.MethodPost, path, "/api/v1/orders/{orderId}/cancel", strings.NewReader(`{}`))
		req.Header.Set(idempotencyHeader, "same-key")
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyWithoutStoreIsPassThrough(t *testing.T) {
	resp := httptest.NewRecorder()
	Idempotency(nil, nil)(okHandler()).ServeHTTP(resp, orderRequest("", `{}`))
	assert.Equal(t, http.StatusOK, resp.Code)
}
