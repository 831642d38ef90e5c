package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func TestOpenMigratesEveryModel(t *testing.T) {
	conn := Open(t)
	for _, model := range models.All() {
		assert.True(t, conn.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.True(t, conn.Migrator().HasIndex(&models.Bargain{}, "ux_bargains_active_buyer_product"))
}

func TestOneActiveBargainPerBuyerAndProduct(t *testing.T) {
	conn := Open(t)
	buyerID, productID := uuid.New(), uuid.New()
	bargain := func(status enums.BargainStatus) *models.Bargain {
		return &models.Bargain{
			ID:            uuid.New(),
			ProductID:     productID,
			BuyerID:       buyerID,
			SellerID:      uuid.New(),
			StoreID:       uuid.New(),
			OriginalPrice: decimal.NewFromInt(1000),
			ProposedPrice: decimal.NewFromInt(800),
			Status:        status,
			Quantity:      1,
			ExpiresAt:     time.Now().UTC().Add(time.Hour),
			Version:       1,
		}
	}

	require.NoError(t, conn.Create(bargain(enums.BargainStatusRejected)).Error)
	require.NoError(t, conn.Create(bargain(enums.BargainStatusPending)).Error)
	assert.Error(t, conn.Create(bargain(enums.BargainStatusCountered)).Error, "a second active bargain must hit the partial index")
	require.NoError(t, conn.Create(bargain(enums.BargainStatusExpired)).Error)
}
