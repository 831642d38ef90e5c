package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusCreated {
		t.Fatalf("expected status 201 but got %d", got)
	}

	var body SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "demo"})
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}

	var body ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Message != "bad input" {
		t.Fatalf("expected message passthrough, got %q", body.Error.Message)
	}
	if body.Error.Details == nil {
		t.Fatalf("expected details in public payload")
	}
}

func TestWriteErrorDomainCodes(t *testing.T) {
	cases := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeInvalidPrice, http.StatusUnprocessableEntity},
		{pkgerrors.CodeInsufficientStock, http.StatusConflict},
		{pkgerrors.CodeStateConflict, http.StatusConflict},
		{pkgerrors.CodeExpired, http.StatusGone},
		{pkgerrors.CodeWindowExpired, http.StatusUnprocessableEntity},
		{pkgerrors.CodeMultiSeller, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), nil, w, pkgerrors.New(tc.code, "reason"))
		if w.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, w.Code)
		}
		var body ErrorEnvelope
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error.Code != string(tc.code) || body.Error.Message != "reason" {
			t.Fatalf("%s: unexpected envelope %+v", tc.code, body.Error)
		}
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &buf})
	w := httptest.NewRecorder()
	WriteError(context.Background(), logg, w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}

	var body ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Message != "internal server error" {
		t.Fatalf("internal message leaked: %q", body.Error.Message)
	}
	if body.Error.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
	if !strings.Contains(buf.String(), "request.error") {
		t.Fatalf("expected request.error log, got %s", buf.String())
	}
}

func TestWriteErrorClassifiesRawDatabaseErrors(t *testing.T) {
	cases := []struct {
		state  string
		status int
		code   pkgerrors.Code
	}{
		{pkgerrors.SQLStateUniqueViolation, http.StatusConflict, pkgerrors.CodeConflict},
		{pkgerrors.SQLStateSerializationFailure, http.StatusConflict, pkgerrors.CodeStateConflict},
		{pkgerrors.SQLStateForeignKeyViolation, http.StatusBadRequest, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		var logs bytes.Buffer
		logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &logs})
		w := httptest.NewRecorder()
		WriteError(context.Background(), logg, w, fmt.Errorf("repo: %w", &pgconn.PgError{Code: tc.state, TableName: "orders"}))

		if w.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.state, tc.status, w.Code)
		}
		var body ErrorEnvelope
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error.Code != string(tc.code) {
			t.Fatalf("%s: expected code %s got %s", tc.state, tc.code, body.Error.Code)
		}
		if !strings.Contains(logs.String(), `"pg_table":"orders"`) {
			t.Fatalf("%s: expected pg diagnostics in log, got %s", tc.state, logs.String())
		}
	}
}

func TestWriteErrorEchoesRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("X-Request-Id", "req-123")
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))

	var body ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.RequestID != "req-123" {
		t.Fatalf("expected request id in envelope, got %q", body.Error.RequestID)
	}
}
