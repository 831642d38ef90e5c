package products

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

func TestRepositoryDecrementStock(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	store := mustCreateStore(t, db, uuid.New())
	product := mustCreateProduct(t, db, store, "kurta", withStock(3))

	require.NoError(t, repo.DecrementStock(ctx, nil, product.ID, 2))

	reloaded, err := repo.GetByID(ctx, nil, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Stock)
	assert.Equal(t, 2, reloaded.TotalSold)

	err = repo.DecrementStock(ctx, nil, product.ID, 2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	reloaded, err = repo.GetByID(ctx, nil, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Stock, "failed decrement must not change stock")
}

func TestRepositoryDecrementStockInactiveProduct(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	store := mustCreateStore(t, db, uuid.New())
	product := mustCreateProduct(t, db, store, "saree", inactive())

	err := repo.DecrementStock(context.Background(), nil, product.ID, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
}

func TestRepositoryDecrementStockRejectsNonPositive(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	err := repo.DecrementStock(context.Background(), nil, uuid.New(), 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRepositoryRestoreStockIsInverse(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	store := mustCreateStore(t, db, uuid.New())
	product := mustCreateProduct(t, db, store, "dupatta", withStock(5))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.DecrementStock(ctx, tx, product.ID, 4)
	}))
	require.NoError(t, repo.RestoreStock(ctx, nil, product.ID, 4))

	reloaded, err := repo.GetByID(ctx, nil, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Stock)
	assert.Equal(t, 0, reloaded.TotalSold)

	err = repo.RestoreStock(ctx, nil, product.ID, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "restore beyond sold quantity must fail")
}

func TestRepositoryDecrementRollsBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	store := mustCreateStore(t, db, uuid.New())
	product := mustCreateProduct(t, db, store, "lehenga", withStock(2))

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.DecrementStock(ctx, tx, product.ID, 2); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	reloaded, err := repo.GetByID(ctx, nil, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Stock)
}

func TestRepositoryUpdateKeepsTotalSold(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	store := mustCreateStore(t, db, uuid.New())
	product := mustCreateProduct(t, db, store, "shirt", withStock(4))
	require.NoError(t, repo.DecrementStock(ctx, nil, product.ID, 1))

	product.Name = "linen shirt"
	product.TotalSold = 99
	product.Stock = 8
	product.IsBargainable = false
	require.NoError(t, repo.Update(ctx, product, true))

	reloaded, err := repo.GetByID(ctx, nil, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "linen shirt", reloaded.Name)
	assert.Equal(t, 8, reloaded.Stock)
	assert.Equal(t, 1, reloaded.TotalSold)
	assert.False(t, reloaded.IsBargainable)
}

func TestRepositoryUpdateLeavesStockAlone(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	store := mustCreateStore(t, db, uuid.New())
	product := mustCreateProduct(t, db, store, "scarf", withStock(1))

	snapshot, err := repo.GetByID(ctx, nil, product.ID)
	require.NoError(t, err)
	require.NoError(t, repo.DecrementStock(ctx, nil, product.ID, 1))

	snapshot.Name = "silk scarf"
	require.NoError(t, repo.Update(ctx, snapshot, false))

	reloaded, err := repo.GetByID(ctx, nil, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "silk scarf", reloaded.Name)
	assert.Equal(t, 0, reloaded.Stock, "the sale must survive a stale edit")
	assert.Equal(t, 1, reloaded.TotalSold)
}

func TestRepositoryListActiveFiltersAndPages(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	store := mustCreateStore(t, db, uuid.New())
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mustCreateProduct(t, db, store, "Blue Kurta", createdAt(base), withPrice("800"))
	mustCreateProduct(t, db, store, "Red Kurta", createdAt(base.Add(time.Minute)), withPrice("1200"), withDiscount("600"))
	mustCreateProduct(t, db, store, "Green Kurta", createdAt(base.Add(2*time.Minute)), withPrice("2000"))
	mustCreateProduct(t, db, store, "Hidden Kurta", createdAt(base.Add(3*time.Minute)), inactive())
	mustCreateProduct(t, db, store, "Sneakers", createdAt(base.Add(4*time.Minute)), withCategory(enums.ProductCategoryFootwear))

	rows, next, err := repo.ListActive(ctx, ListQuery{
		Filters:    ListFilters{Query: "kurta"},
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Green Kurta", rows[0].Name)
	assert.Equal(t, "Red Kurta", rows[1].Name)
	require.NotEmpty(t, next)

	rows, next, err = repo.ListActive(ctx, ListQuery{
		Filters:    ListFilters{Query: "kurta"},
		Pagination: pagination.Params{Limit: 2, Cursor: next},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Blue Kurta", rows[0].Name)
	assert.Empty(t, next)

	maxPrice := decimal.NewFromInt(900)
	rows, _, err = repo.ListActive(ctx, ListQuery{Filters: ListFilters{Query: "kurta", PriceMax: &maxPrice}})
	require.NoError(t, err)
	names := []string{}
	for _, r := range rows {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, []string{"Blue Kurta", "Red Kurta"}, names, "price filter uses effective price")

	footwear := enums.ProductCategoryFootwear
	rows, _, err = repo.ListActive(ctx, ListQuery{Filters: ListFilters{Category: &footwear}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sneakers", rows[0].Name)
}

func TestRepositoryListByStoreIncludesInactive(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	store := mustCreateStore(t, db, uuid.New())
	other := mustCreateStore(t, db, uuid.New())
	mustCreateProduct(t, db, store, "mine", inactive())
	mustCreateProduct(t, db, other, "theirs")

	rows, next, err := repo.ListByStore(context.Background(), store.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "mine", rows[0].Name)
	assert.Empty(t, next)
}

func TestRepositoryListRejectsBadCursor(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	_, _, err := repo.ListActive(context.Background(), ListQuery{Pagination: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
