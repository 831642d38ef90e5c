package bargains

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	dbpkg "github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type sentNotification struct {
	UserID  uuid.UUID
	Kind    enums.NotificationType
	Payload notifications.Payload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload notifications.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{UserID: userID, Kind: kind, Payload: payload})
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
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	db       *gorm.DB
	svc      Service
	repo     *Repository
	notifier *recordingNotifier
	clock    *testClock
	buyer    auth.Actor
	seller   auth.Actor
	store    *models.Store
}

func newHarness(t *testing.T, maxCounters int) *harness {
	t.Helper()
	db := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "bargains-test", Output: &bytes.Buffer{}})
	clock := &testClock{now: time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	repo := NewRepository(db)

	svc, err := NewService(ServiceParams{
		DB:       dbpkg.Wrap(db),
		Repo:     repo,
		Products: products.NewRepository(db),
		Outbox:   outbox.NewService(outbox.NewRepository(db), logg),
		Notifier: notifier,
		Logger:   logg,
		Config:   config.MarketplaceConfig{BargainExpiryHours: 24, BargainMaxCounters: maxCounters},
		Clock:    clock.Now,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	seller := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	store := &models.Store{ID: uuid.New(), OwnerID: seller.UserID, Name: "Chikan House", City: "Lucknow", IsActive: true}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	return &harness{
		db:       db,
		svc:      svc,
		repo:     repo,
		notifier: notifier,
		clock:    clock,
		buyer:    auth.Actor{UserID: uuid.New(), Role: enums.UserRoleBuyer},
		seller:   seller,
		store:    store,
	}
}

// product creates a bargainable listing priced at 1000 with a 650 floor.
func (h *harness) product(t *testing.T, mutate ...func(*models.Product)) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:            uuid.New(),
		StoreID:       h.store.ID,
		SellerID:      h.seller.UserID,
		Name:          "Chikankari Kurta",
		Category:      enums.ProductCategoryEthnic,
		Images:        types.StringList{},
		Sizes:         types.StringList{"M", "L"},
		Colors:        types.StringList{"white"},
		Price:         decimal.NewFromInt(1000),
		MinPrice:      decimal.NewNullDecimal(decimal.NewFromInt(650)),
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

func (h *harness) propose(t *testing.T, productID uuid.UUID, price string) *BargainDTO {
	t.Helper()
	dto, err := h.svc.Propose(context.Background(), h.buyer, ProposeInput{
		ProductID:     productID,
		ProposedPrice: decimal.RequireFromString(price),
		Quantity:      1,
	})
	if err != nil {
		t.Fatalf("propose %s: %v", price, err)
	}
	return dto
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

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}
