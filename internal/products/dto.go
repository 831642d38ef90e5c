package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

const lowStockThreshold = 5

// Stock status labels surfaced to buyers.
const (
	StockStatusOut = "out_of_stock"
	StockStatusLow = "low_stock"
	StockStatusIn  = "in_stock"
)

// ProductDTO exposes a listing plus its derived pricing fields.
type ProductDTO struct {
	ID                 uuid.UUID             `json:"id"`
	StoreID            uuid.UUID             `json:"store_id"`
	SellerID           uuid.UUID             `json:"seller_id"`
	Name               string                `json:"name"`
	Description        *string               `json:"description,omitempty"`
	Category           enums.ProductCategory `json:"category"`
	Images             []string              `json:"images"`
	Sizes              []string              `json:"sizes"`
	Colors             []string              `json:"colors"`
	Price              decimal.Decimal       `json:"price"`
	DiscountPrice      *decimal.Decimal      `json:"discount_price,omitempty"`
	MinPrice           *decimal.Decimal      `json:"min_price,omitempty"`
	EffectivePrice     decimal.Decimal       `json:"effective_price"`
	DiscountPercentage int64                 `json:"discount_percentage"`
	IsBargainable      bool                  `json:"is_bargainable"`
	Stock              int                   `json:"stock"`
	StockStatus        string                `json:"stock_status"`
	TotalSold          int                   `json:"total_sold"`
	IsActive           bool                  `json:"is_active"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// FromModel maps a product model into a DTO.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:                 p.ID,
		StoreID:            p.StoreID,
		SellerID:           p.SellerID,
		Name:               p.Name,
		Description:        p.Description,
		Category:           p.Category,
		Images:             nonNil(p.Images),
		Sizes:              nonNil(p.Sizes),
		Colors:             nonNil(p.Colors),
		Price:              p.Price,
		DiscountPrice:      nullDecimalPtr(p.DiscountPrice),
		MinPrice:           nullDecimalPtr(p.MinPrice),
		EffectivePrice:     p.EffectivePrice(),
		DiscountPercentage: DiscountPercentage(p.Price, p.DiscountPrice),
		IsBargainable:      p.IsBargainable,
		Stock:              p.Stock,
		StockStatus:        StockStatus(p.Stock),
		TotalSold:          p.TotalSold,
		IsActive:           p.IsActive,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// DiscountPercentage is round((price - discount) / price * 100), or 0 without a discount.
func DiscountPercentage(price decimal.Decimal, discount decimal.NullDecimal) int64 {
	if !discount.Valid || !price.IsPositive() {
		return 0
	}
	return price.Sub(discount.Decimal).Div(price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// StockStatus buckets a stock count.
func StockStatus(stock int) string {
	switch {
	case stock <= 0:
		return StockStatusOut
	case stock <= lowStockThreshold:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

func fromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func nullDecimalPtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
