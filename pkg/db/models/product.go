package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Product represents a listing in a seller's store.
type Product struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	StoreID       uuid.UUID             `gorm:"column:store_id;type:uuid;not null;index"`
	SellerID      uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;index"`
	Name          string                `gorm:"column:name;not null"`
	Description   *string               `gorm:"column:description"`
	Category      enums.ProductCategory `gorm:"column:category;type:product_category;not null"`
	Images        types.StringList      `gorm:"column:images;type:jsonb;not null"`
	Sizes         types.StringList      `gorm:"column:sizes;type:jsonb;not null"`
	Colors        types.StringList      `gorm:"column:colors;type:jsonb;not null"`
	Price         decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPrice decimal.NullDecimal   `gorm:"column:discount_price;type:numeric(12,2)"`
	MinPrice      decimal.NullDecimal   `gorm:"column:min_price;type:numeric(12,2)"`
	IsBargainable bool                  `gorm:"column:is_bargainable;not null;default:false"`
	Stock         int                   `gorm:"column:stock;not null;default:0;check:stock >= 0"`
	TotalSold     int                   `gorm:"column:total_sold;not null;default:0"`
	IsActive      bool                  `gorm:"column:is_active;not null"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice is the price a buyer pays without negotiation.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

// HasFloor reports whether the seller configured a minimum acceptable offer.
func (p Product) HasFloor() bool {
	return p.MinPrice.Valid
}
