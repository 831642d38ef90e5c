package products

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

func mustCreateStore(t *testing.T, db *gorm.DB, ownerID uuid.UUID) *models.Store {
	t.Helper()
	store := &models.Store{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Name:     "Test Boutique",
		City:     "Pune",
		IsActive: true,
	}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

type productOpt func(*models.Product)

func withStock(n int) productOpt { return func(p *models.Product) { p.Stock = n } }

func withPrice(price string) productOpt {
	return func(p *models.Product) { p.Price = decimal.RequireFromString(price) }
}

func withDiscount(price string) productOpt {
	return func(p *models.Product) {
		p.DiscountPrice = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
}

func inactive() productOpt { return func(p *models.Product) { p.IsActive = false } }

func withCategory(c enums.ProductCategory) productOpt {
	return func(p *models.Product) { p.Category = c }
}

func createdAt(at time.Time) productOpt { return func(p *models.Product) { p.CreatedAt = at } }

func mustCreateProduct(t *testing.T, db *gorm.DB, store *models.Store, name string, opts ...productOpt) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		StoreID:       store.ID,
		SellerID:      store.OwnerID,
		Name:          name,
		Category:      enums.ProductCategoryWomen,
		Images:        types.StringList{"img/" + name + ".jpg"},
		Sizes:         types.StringList{"M"},
		Colors:        types.StringList{"red"},
		Price:         decimal.NewFromInt(1000),
		IsBargainable: true,
		Stock:         10,
		IsActive:      true,
	}
	for _, opt := range opts {
		opt(product)
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}
