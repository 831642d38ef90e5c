package orders

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/bargains"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/internal/settlement"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	dbpkg "github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/payout"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type sentNotification struct {
	UserID uuid.UUID
	Kind   enums.NotificationType
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload notifications.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{UserID: userID, Kind: kind})
}

func (r *recordingNotifier) last() sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return sentNotification{}
	}
	return r.sent[len(r.sent)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	db       *gorm.DB
	svc      Service
	bargains bargains.Service
	notifier *recordingNotifier
	clock    *testClock
	buyer    auth.Actor
	seller   auth.Actor
	store    *models.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: &bytes.Buffer{}})
	clock := &testClock{now: time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	emitter := outbox.NewService(outbox.NewRepository(db), logg)
	runner := dbpkg.Wrap(db)
	marketplace := config.MarketplaceConfig{
		Currency:              "INR",
		PlatformFeePercent:    decimal.NewFromInt(5),
		FreeDeliveryThreshold: decimal.NewFromInt(500),
		DeliveryFee:           decimal.NewFromInt(50),
		BargainExpiryHours:    24,
		BargainMaxCounters:    3,
		CancelWindow:          time.Hour,
		ReturnWindowDays:      7,
	}
	productRepo := products.NewRepository(db)

	bargainSvc, err := bargains.NewService(bargains.ServiceParams{
		DB:       runner,
		Repo:     bargains.NewRepository(db),
		Products: productRepo,
		Outbox:   emitter,
		Notifier: notifier,
		Logger:   logg,
		Config:   marketplace,
		Clock:    clock.Now,
	})
	if err != nil {
		t.Fatalf("bargain service: %v", err)
	}
	ledger, err := settlement.NewService(settlement.ServiceParams{
		DB:       runner,
		Repo:     settlement.NewRepository(db),
		Stores:   stores.NewRepository(db),
		Gateway:  payout.NewMockGateway(),
		Outbox:   emitter,
		Notifier: notifier,
		Logger:   logg,
		Metrics:  metrics.NewSettlementMetrics(nil),
		Config:   config.SettlementConfig{HoldHours: 24, BatchSize: 10},
		Currency: "INR",
		Clock:    clock.Now,
	})
	if err != nil {
		t.Fatalf("settlement service: %v", err)
	}
	svc, err := NewService(ServiceParams{
		DB:       runner,
		Repo:     NewRepository(db),
		Products: productRepo,
		Bargains: bargainSvc,
		Ledger:   ledger,
		Outbox:   emitter,
		Notifier: notifier,
		Logger:   logg,
		Config:   marketplace,
		Clock:    clock.Now,
	})
	if err != nil {
		t.Fatalf("order service: %v", err)
	}

	h := &harness{
		db:       db,
		svc:      svc,
		bargains: bargainSvc,
		notifier: notifier,
		clock:    clock,
		buyer:    auth.Actor{UserID: uuid.New(), Role: enums.UserRoleBuyer},
	}
	h.seller, h.store = h.newSeller(t, "Phulkari Studio")
	return h
}

func (h *harness) newSeller(t *testing.T, name string) (auth.Actor, *models.Store) {
	t.Helper()
	seller := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	store := &models.Store{ID: uuid.New(), OwnerID: seller.UserID, Name: name, City: "Amritsar", IsActive: true}
	if err := h.db.Create(store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	return seller, store
}

// product lists an item for the harness seller at price with 5 in stock.
func (h *harness) product(t *testing.T, price string, mutate ...func(*models.Product)) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:            uuid.New(),
		StoreID:       h.store.ID,
		SellerID:      h.seller.UserID,
		Name:          "Phulkari Dupatta",
		Category:      enums.ProductCategoryEthnic,
		Images:        types.StringList{"https://cdn.example.com/dupatta.jpg"},
		Sizes:         types.StringList{},
		Colors:        types.StringList{"orange"},
		Price:         decimal.RequireFromString(price),
		MinPrice:      decimal.NewNullDecimal(decimal.RequireFromString(price).Div(decimal.NewFromInt(2))),
		IsBargainable: true,
		Stock:         5,
		IsActive:      true,
	}
	for _, m := range mutate {
		m(p)
	}
	if err := h.db.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (h *harness) order(t *testing.T, method enums.PaymentMethod, lines ...LineItemInput) *OrderDTO {
	t.Helper()
	dto, err := h.svc.CreateOrder(context.Background(), h.buyer, orderInput(method, lines...))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return dto
}

func (h *harness) stock(t *testing.T, productID uuid.UUID) (int, int) {
	t.Helper()
	var p models.Product
	if err := h.db.First(&p, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return p.Stock, p.TotalSold
}

func (h *harness) transaction(t *testing.T, orderID uuid.UUID) *models.Transaction {
	t.Helper()
	var txn models.Transaction
	err := h.db.First(&txn, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	return &txn
}

func (h *harness) outboxTypes(t *testing.T) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	if err := h.db.Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.EventType)
	}
	return out
}

func (h *harness) advanceTo(t *testing.T, orderID uuid.UUID, statuses ...enums.OrderStatus) *OrderDTO {
	t.Helper()
	var dto *OrderDTO
	for _, status := range statuses {
		var err error
		dto, err = h.svc.UpdateStatus(context.Background(), h.seller, orderID, UpdateStatusInput{Status: status})
		if err != nil {
			t.Fatalf("update status to %s: %v", status, err)
		}
	}
	return dto
}

func line(productID uuid.UUID, qty int) LineItemInput {
	return LineItemInput{ProductID: productID, Quantity: qty}
}

func orderInput(method enums.PaymentMethod, lines ...LineItemInput) CreateOrderInput {
	return CreateOrderInput{
		Items: lines,
		ShippingAddress: types.Address{
			Name:       "Harleen Kaur",
			Phone:      "9876543210",
			Line1:      "12 Lawrence Road",
			City:       "Amritsar",
			State:      "Punjab",
			PostalCode: "143001",
			Country:    "IN",
		},
		PaymentMethod: method,
	}
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
