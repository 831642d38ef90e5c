package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// ListFilters describe the supported filter knobs for the browse endpoint.
// Price bounds apply to the effective (discounted) price.
type ListFilters struct {
	Category    *enums.ProductCategory `json:"category,omitempty"`
	StoreID     *uuid.UUID             `json:"store_id,omitempty"`
	PriceMin    *decimal.Decimal       `json:"price_min,omitempty"`
	PriceMax    *decimal.Decimal       `json:"price_max,omitempty"`
	Bargainable *bool                  `json:"bargainable,omitempty"`
	InStockOnly bool                   `json:"in_stock,omitempty"`
	Query       string                 `json:"q,omitempty"`
}

// ListQuery captures filters plus pagination for the public catalog.
type ListQuery struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// ListResult is a cursor page of products.
type ListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}
