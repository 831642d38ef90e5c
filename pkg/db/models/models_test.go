package models

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestProductEffectivePrice(t *testing.T) {
	p := Product{Price: dec("1000")}
	if !p.EffectivePrice().Equal(dec("1000")) {
		t.Fatalf("expected base price, got %s", p.EffectivePrice())
	}
	p.DiscountPrice = decimal.NewNullDecimal(dec("899"))
	if !p.EffectivePrice().Equal(dec("899")) {
		t.Fatalf("expected discount price, got %s", p.EffectivePrice())
	}
}

func TestBargainDiscountPercentage(t *testing.T) {
	b := Bargain{OriginalPrice: dec("1000"), ProposedPrice: dec("750")}
	if got := b.DiscountPercentage(); got != 25 {
		t.Fatalf("expected 25%% off proposal, got %d", got)
	}
	b.CounterOffer = decimal.NewNullDecimal(dec("850"))
	if got := b.DiscountPercentage(); got != 15 {
		t.Fatalf("expected counter to drive discount, got %d", got)
	}
	b = Bargain{OriginalPrice: dec("999"), ProposedPrice: dec("666")}
	if got := b.DiscountPercentage(); got != 33 {
		t.Fatalf("expected rounded 33, got %d", got)
	}
}

func TestBargainTimeRemainingAndExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := Bargain{Status: enums.BargainStatusPending, ExpiresAt: now.Add(time.Hour)}
	if got := b.TimeRemaining(now); got != time.Hour {
		t.Fatalf("expected 1h remaining, got %v", got)
	}
	if b.IsExpired(now) {
		t.Fatalf("bargain should not be expired yet")
	}
	if !b.IsExpired(now.Add(time.Hour)) {
		t.Fatalf("bargain expires exactly at expires_at")
	}
	if got := b.TimeRemaining(now.Add(2 * time.Hour)); got != 0 {
		t.Fatalf("time remaining must not be negative, got %v", got)
	}
	b.Status = enums.BargainStatusAccepted
	if b.IsExpired(now.Add(48 * time.Hour)) {
		t.Fatalf("terminal bargains never report expiry")
	}
}

func TestOrderCanCancelBoundary(t *testing.T) {
	placed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	o := Order{Status: enums.OrderStatusPlaced, PlacedAt: placed}

	if !o.CanCancel(placed.Add(59*time.Minute+59*time.Second), time.Hour) {
		t.Fatalf("expected cancel allowed at 59m59s")
	}
	if !o.CanCancel(placed.Add(time.Hour), time.Hour) {
		t.Fatalf("expected cancel allowed at exactly 60m")
	}
	if o.CanCancel(placed.Add(time.Hour+time.Second), time.Hour) {
		t.Fatalf("expected cancel rejected at 60m01s")
	}
	o.Status = enums.OrderStatusPacked
	if o.CanCancel(placed, time.Hour) {
		t.Fatalf("packed orders cannot be cancelled")
	}
}

func TestOrderCanReturn(t *testing.T) {
	delivered := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ends := delivered.Add(7 * 24 * time.Hour)
	o := Order{Status: enums.OrderStatusDelivered, DeliveredAt: &delivered, ReturnWindowEndsAt: &ends}
	if !o.CanReturn(ends) {
		t.Fatalf("expected return allowed at window end")
	}
	if o.CanReturn(ends.Add(time.Second)) {
		t.Fatalf("expected return rejected after window")
	}
	o.Status = enums.OrderStatusShipped
	if o.CanReturn(delivered) {
		t.Fatalf("undelivered orders cannot be returned")
	}
}

func TestOrderMarkStatusSetsTimeline(t *testing.T) {
	at := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	var o Order
	o.MarkStatus(enums.OrderStatusShipped, at)
	if o.Status != enums.OrderStatusShipped || o.ShippedAt == nil || !o.ShippedAt.Equal(at) {
		t.Fatalf("expected shipped timeline to be set, got %+v", o)
	}
	if o.PackedAt != nil {
		t.Fatalf("unexpected packed timestamp")
	}
}

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.UnixMilli(1767225600123)
	number, err := NewOrderNumber(now)
	if err != nil {
		t.Fatalf("order number: %v", err)
	}
	if !regexp.MustCompile(`^ORD1767225600123[0-9A-F]{6}$`).MatchString(number) {
		t.Fatalf("unexpected order number %q", number)
	}
}

func TestTransactionRecalculateAndNumber(t *testing.T) {
	tx := Transaction{Amount: dec("850"), PlatformFee: dec("42.50"), ProcessingFee: dec("0")}
	tx.Recalculate()
	if !tx.NetAmount.Equal(dec("807.50")) {
		t.Fatalf("expected net 807.50, got %s", tx.NetAmount)
	}

	number, err := NewTransactionNumber(time.UnixMilli(1767225600123))
	if err != nil {
		t.Fatalf("transaction number: %v", err)
	}
	if !regexp.MustCompile(`^TXN1767225600123[0-9A-F]{6}$`).MatchString(number) {
		t.Fatalf("unexpected transaction number %q", number)
	}

	// a day apart the numbers must not share a prefix the way truncated millis did
	later, err := NewTransactionNumber(time.UnixMilli(1767225600123).Add(100000 * time.Second))
	if err != nil {
		t.Fatalf("transaction number: %v", err)
	}
	if later[:16] == number[:16] {
		t.Fatalf("expected distinct timestamps, got %q and %q", number, later)
	}

	seen := make(map[string]bool, 2000)
	for i := 0; i < 2000; i++ {
		n, err := NewTransactionNumber(time.UnixMilli(1767225600123))
		if err != nil {
			t.Fatalf("transaction number: %v", err)
		}
		seen[n] = true
	}
	if len(seen) < 1990 {
		t.Fatalf("too many collisions within one millisecond: %d unique of 2000", len(seen))
	}
}

func TestOutboxEventDeadLetter(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	event := OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"event_id":"x"}`),
		AttemptCount:  10,
	}

	dl := event.DeadLetter(enums.OutboxDLQReasonMaxAttempts, errors.New(strings.Repeat("e", 2000)), at)
	if dl.EventID != event.ID || dl.AggregateID != event.AggregateID || dl.AttemptCount != 10 {
		t.Fatalf("dead letter lost event identity: %+v", dl)
	}
	if dl.ID == uuid.Nil || dl.ID == event.ID {
		t.Fatalf("dead letter needs its own id")
	}
	if !dl.FailedAt.Equal(at) {
		t.Fatalf("unexpected failed_at %v", dl.FailedAt)
	}
	if dl.ErrorMessage == nil || len(*dl.ErrorMessage) != maxDeadLetterError {
		t.Fatalf("expected error text truncated to %d bytes", maxDeadLetterError)
	}

	if clean := event.DeadLetter(enums.OutboxDLQReasonUnroutable, nil, at); clean.ErrorMessage != nil {
		t.Fatalf("expected nil error message without a cause")
	}
}
