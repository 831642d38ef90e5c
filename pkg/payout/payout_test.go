package payout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

func sampleRequest() TransferRequest {
	return TransferRequest{
		IdempotencyKey: uuid.New(),
		Reference:      "TXN12345678123",
		Amount:         decimal.RequireFromString("807.50"),
		Currency:       "INR",
		Destination:    "acct_123",
	}
}

func TestMockGatewayTransfers(t *testing.T) {
	req := sampleRequest()
	res, err := NewMockGateway().Transfer(context.Background(), req)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !strings.HasPrefix(res.ID, "mock_tr_") || res.Provider != "mock" {
		t.Fatalf("unexpected result %+v", res)
	}
	again, err := NewMockGateway().Transfer(context.Background(), req)
	if err != nil || again.ID != res.ID {
		t.Fatalf("expected a repeat request to return %s, got %+v (%v)", res.ID, again, err)
	}

	bad := sampleRequest()
	bad.Amount = decimal.Zero
	if _, err := NewMockGateway().Transfer(context.Background(), bad); !IsPermanent(err) {
		t.Fatalf("expected permanent rejection, got %v", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	gw, err := New(context.Background(), config.PayoutConfig{Provider: "mock"}, config.StripeConfig{}, nil)
	if err != nil || gw.Name() != "mock" {
		t.Fatalf("expected mock gateway, got %v %v", gw, err)
	}
	if _, err := New(context.Background(), config.PayoutConfig{Provider: "paypal"}, config.StripeConfig{}, nil); err == nil {
		t.Fatal("expected unsupported provider error")
	}
	if _, err := New(context.Background(), config.PayoutConfig{Provider: "stripe"}, config.StripeConfig{APIKey: "sk_live_x", Env: "test"}, nil); err == nil {
		t.Fatal("expected key/environment mismatch error")
	}
}

func TestHTTPGateway(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		permanent bool
	}{
		{name: "created", status: http.StatusCreated, body: `{"id":"bt_1","status":"queued"}`},
		{name: "rejected account", status: http.StatusUnprocessableEntity, body: `{"code":"invalid_account","message":"closed"}`, wantErr: true, permanent: true},
		{name: "server error retries", status: http.StatusBadGateway, body: `{"message":"upstream"}`, wantErr: true},
		{name: "throttled retries", status: http.StatusTooManyRequests, body: `{}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got transferBody
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != transfersPath || r.Method != http.MethodPost {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("Idempotency-Key") == "" {
					t.Errorf("missing auth or idempotency headers")
				}
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			gw, err := NewHTTPGateway(config.PayoutConfig{HTTPBaseURL: srv.URL + "/", HTTPAPIKey: "secret", HTTPTimeout: time.Second})
			if err != nil {
				t.Fatalf("new gateway: %v", err)
			}
			res, err := gw.Transfer(context.Background(), sampleRequest())
			if got.Amount != "807.50" || got.Reference != "TXN12345678123" {
				t.Fatalf("unexpected body %+v", got)
			}
			if !tc.wantErr {
				if err != nil || res.ID != "bt_1" {
					t.Fatalf("expected bt_1, got %v %v", res, err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if IsPermanent(err) != tc.permanent {
				t.Fatalf("permanent=%v, want %v (%v)", IsPermanent(err), tc.permanent, err)
			}
		})
	}
}

type fakeTransfers struct {
	params *stripe.TransferCreateParams
	err    error
}

func (f *fakeTransfers) Create(ctx context.Context, params *stripe.TransferCreateParams) (*stripe.Transfer, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.Transfer{ID: "tr_123"}, nil
}

func TestStripeGatewayTransfer(t *testing.T) {
	fake := &fakeTransfers{}
	gw := &StripeGateway{transfers: fake, environment: testEnv}

	res, err := gw.Transfer(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.ID != "tr_123" {
		t.Fatalf("unexpected id %s", res.ID)
	}
	if *fake.params.Amount != 80750 || *fake.params.Currency != "inr" || *fake.params.Destination != "acct_123" {
		t.Fatalf("unexpected params amount=%d currency=%s", *fake.params.Amount, *fake.params.Currency)
	}

	noAccount := sampleRequest()
	noAccount.Destination = ""
	if _, err := gw.Transfer(context.Background(), noAccount); !IsPermanent(err) {
		t.Fatalf("expected rejection without destination, got %v", err)
	}

	fake.err = &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusBadRequest, Msg: "No such destination"}
	if _, err := gw.Transfer(context.Background(), sampleRequest()); !IsPermanent(err) {
		t.Fatalf("expected invalid request to be permanent, got %v", err)
	}

	fake.err = &stripe.Error{Type: stripe.ErrorTypeAPI, HTTPStatusCode: http.StatusInternalServerError}
	_, err = gw.Transfer(context.Background(), sampleRequest())
	if err == nil || IsPermanent(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}

	fake.err = errors.New("connection reset")
	if _, err := gw.Transfer(context.Background(), sampleRequest()); err == nil || IsPermanent(err) {
		t.Fatalf("expected retryable network error, got %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	if err := validateAPIKey(testEnv, "sk_test_abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateAPIKey(liveEnv, "sk_test_abc"); err == nil {
		t.Fatal("expected live env to reject test key")
	}
	if _, err := normalizeEnv("staging"); err == nil {
		t.Fatal("expected invalid env")
	}
}
