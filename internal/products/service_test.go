package products

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db), stores.NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func validInput() CreateProductInput {
	return CreateProductInput{
		Name:          "Handloom Saree",
		Category:      enums.ProductCategoryEthnic,
		Images:        []string{"a.jpg", " ", "b.jpg"},
		Sizes:         []string{"Free"},
		Price:         decimal.NewFromInt(1000),
		MinPrice:      dec("650"),
		IsBargainable: true,
		Stock:         4,
	}
}

func TestServiceCreateDerivedFields(t *testing.T) {
	svc, db := newTestService(t)
	seller := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	store := mustCreateStore(t, db, seller.UserID)

	in := validInput()
	in.DiscountPrice = dec("800")
	dto, err := svc.Create(context.Background(), seller, in)
	require.NoError(t, err)

	assert.Equal(t, store.ID, dto.StoreID)
	assert.Equal(t, seller.UserID, dto.SellerID)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, dto.Images)
	assert.True(t, dto.EffectivePrice.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, int64(20), dto.DiscountPercentage)
	assert.Equal(t, StockStatusLow, dto.StockStatus)
	assert.True(t, dto.IsActive)
}

func TestServiceCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateProductInput)
		code   pkgerrors.Code
	}{
		{"short name", func(in *CreateProductInput) { in.Name = "a" }, pkgerrors.CodeValidation},
		{"long name", func(in *CreateProductInput) { in.Name = strings.Repeat("x", 201) }, pkgerrors.CodeValidation},
		{"long description", func(in *CreateProductInput) { d := strings.Repeat("d", 2001); in.Description = &d }, pkgerrors.CodeValidation},
		{"bad category", func(in *CreateProductInput) { in.Category = "gadgets" }, pkgerrors.CodeValidation},
		{"negative stock", func(in *CreateProductInput) { in.Stock = -1 }, pkgerrors.CodeValidation},
		{"negative price", func(in *CreateProductInput) { in.Price = decimal.NewFromInt(-1) }, pkgerrors.CodeInvalidPrice},
		{"discount equals price", func(in *CreateProductInput) { in.DiscountPrice = dec("1000") }, pkgerrors.CodeInvalidPrice},
		{"floor above effective price", func(in *CreateProductInput) {
			in.DiscountPrice = dec("600")
			in.MinPrice = dec("650")
		}, pkgerrors.CodeInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, db := newTestService(t)
			seller := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
			mustCreateStore(t, db, seller.UserID)

			in := validInput()
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), seller, in)
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestServiceCreateRequiresSellerWithStore(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, auth.Actor{UserID: uuid.New(), Role: enums.UserRoleBuyer}, validInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Create(ctx, auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}, validInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceUpdate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seller := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	mustCreateStore(t, db, seller.UserID)

	created, err := svc.Create(ctx, seller, validInput())
	require.NoError(t, err)

	name := "Silk Saree"
	stock := 0
	updated, err := svc.Update(ctx, seller, created.ID, UpdateProductInput{
		Name:          &name,
		Stock:         &stock,
		ClearMinPrice: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Silk Saree", updated.Name)
	assert.Nil(t, updated.MinPrice)
	assert.Equal(t, StockStatusOut, updated.StockStatus)

	// Raising the floor above the price is rejected on update as well.
	_, err = svc.Update(ctx, seller, created.ID, UpdateProductInput{MinPrice: dec("1500")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidPrice))

	other := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	_, err = svc.Update(ctx, other, created.ID, UpdateProductInput{Name: &name})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "foreign sellers must not learn the product exists")
}

// sellingRepository lands a sale between the service's read and its write.
type sellingRepository struct {
	*Repository
}

func (r sellingRepository) Update(ctx context.Context, product *models.Product, setStock bool) error {
	if err := r.DecrementStock(ctx, nil, product.ID, 1); err != nil {
		return err
	}
	return r.Repository.Update(ctx, product, setStock)
}

func TestServiceUpdateKeepsConcurrentSale(t *testing.T) {
	db := dbtest.Open(t)
	svc, err := NewService(sellingRepository{NewRepository(db)}, stores.NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()
	seller := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	store := mustCreateStore(t, db, seller.UserID)
	product := mustCreateProduct(t, db, store, "kurta", withStock(1))

	name := "cotton kurta"
	updated, err := svc.Update(ctx, seller, product.ID, UpdateProductInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "cotton kurta", updated.Name)
	assert.Equal(t, StockStatusOut, updated.StockStatus)

	var stored models.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 0, stored.Stock)
	assert.Equal(t, 1, stored.TotalSold)
}

func TestServiceGetHidesInactive(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	store := mustCreateStore(t, db, uuid.New())
	visible := mustCreateProduct(t, db, store, "visible")
	hidden := mustCreateProduct(t, db, store, "hidden", inactive())

	dto, err := svc.Get(ctx, visible.ID)
	require.NoError(t, err)
	assert.Equal(t, "visible", dto.Name)

	_, err = svc.Get(ctx, hidden.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceListAndListMine(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seller := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	store := mustCreateStore(t, db, seller.UserID)
	mustCreateProduct(t, db, store, "one")
	mustCreateProduct(t, db, store, "two", inactive())

	public, err := svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, public.Products, 1)

	mine, err := svc.ListMine(ctx, seller, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, mine.Products, 2)

	lo, hi := decimal.NewFromInt(10), decimal.NewFromInt(5)
	_, err = svc.List(ctx, ListQuery{Filters: ListFilters{PriceMin: &lo, PriceMax: &hi}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDiscountPercentageAndStockStatus(t *testing.T) {
	price := decimal.NewFromInt(1000)
	if got := DiscountPercentage(price, decimal.NewNullDecimal(decimal.NewFromInt(667))); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
	if got := DiscountPercentage(price, decimal.NullDecimal{}); got != 0 {
		t.Fatalf("expected 0 without discount, got %d", got)
	}
	for stock, want := range map[int]string{0: StockStatusOut, 5: StockStatusLow, 6: StockStatusIn} {
		if got := StockStatus(stock); got != want {
			t.Fatalf("StockStatus(%d) = %s, want %s", stock, got, want)
		}
	}
}
