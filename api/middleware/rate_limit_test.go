package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRateStore) RateLimitKey(scope string) string { return "rl:" + scope }

func loginRequest(email, addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = addr
	return req
}

func TestRateLimitPreservesBodyForHandler(t *testing.T) {
	handler := RateLimit(LoginPolicy(time.Minute, 2, 2), newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"email":"tester@example.com"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4:5678"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitEmailRuleIgnoresCaseAndAddress(t *testing.T) {
	handler := RateLimit(LoginPolicy(time.Minute, 0, 2), newFakeRateStore(), nil)(okHandler())

	emails := []string{"blocked@example.com", " Blocked@Example.com", "BLOCKED@example.com"}
	for i, email := range emails {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, "10.0.0."+string(rune('1'+i))+":80"))
		if i < 2 {
			assert.Equal(t, http.StatusOK, rec.Code, "attempt %d", i)
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))

		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, string(pkgerrors.CodeRateLimit), payload.Error.Code)
	}
}

func TestRateLimitIPRulePrefersForwardedHeader(t *testing.T) {
	handler := RateLimit(RegisterPolicy(time.Minute, 1, 0), newFakeRateStore(), nil)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"user`+string(rune('a'+i))+`@example.com"}`))
		req.RemoteAddr = "5.6.7.8:1234"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}

func TestRateLimitActorPolicyIsPerUser(t *testing.T) {
	handler := RateLimit(ActorPolicy("bargain_propose", time.Hour, 1), newFakeRateStore(), nil)(okHandler())
	send := func(userID uuid.UUID) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bargains", nil)
		req = req.WithContext(WithActor(req.Context(), auth.Actor{UserID: userID, Role: enums.UserRoleBuyer}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	first, second := uuid.New(), uuid.New()
	assert.Equal(t, http.StatusOK, send(first))
	assert.Equal(t, http.StatusTooManyRequests, send(first))
	assert.Equal(t, http.StatusOK, send(second))
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(LoginPolicy(0, 1, 1), store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, store.counts)
}

func TestRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := RateLimit(LoginPolicy(time.Minute, 5, 5), store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
	assert.GreaterOrEqual(t, rec.Code, http.StatusInternalServerError)
}
