package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	productsvc "github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// ListProducts serves the public catalog with filters and cursor pagination.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		query, err := parseProductListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// SellerListProducts returns the caller's own listings, inactive ones included.
func SellerListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// SellerCreateProduct lists a new product in the caller's store.
func SellerCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// SellerUpdateProduct applies a partial update to one of the caller's products.
func SellerUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), actor, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	Name          string           `json:"name" validate:"required,max=200"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category      string           `json:"category" validate:"required"`
	Images        []string         `json:"images" validate:"omitempty,max=10,dive,url"`
	Sizes         []string         `json:"sizes,omitempty" validate:"omitempty,dive,required,max=20"`
	Colors        []string         `json:"colors,omitempty" validate:"omitempty,dive,required,max=30"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	MinPrice      *decimal.Decimal `json:"min_price,omitempty"`
	IsBargainable *bool            `json:"is_bargainable,omitempty"`
	Stock         int              `json:"stock" validate:"min=0"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

func (r createProductRequest) toInput() (productsvc.CreateProductInput, error) {
	category, err := enums.ParseProductCategory(strings.TrimSpace(r.Category))
	if err != nil {
		return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	bargainable := true
	if r.IsBargainable != nil {
		bargainable = *r.IsBargainable
	}
	return productsvc.CreateProductInput{
		Name:          r.Name,
		Description:   r.Description,
		Category:      category,
		Images:        r.Images,
		Sizes:         r.Sizes,
		Colors:        r.Colors,
		Price:         *r.Price,
		DiscountPrice: r.DiscountPrice,
		MinPrice:      r.MinPrice,
		IsBargainable: bargainable,
		Stock:         r.Stock,
		IsActive:      r.IsActive,
	}, nil
}

type updateProductRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category      *string          `json:"category,omitempty"`
	Images        *[]string        `json:"images,omitempty" validate:"omitempty,max=10,dive,url"`
	Sizes         *[]string        `json:"sizes,omitempty"`
	Colors        *[]string        `json:"colors,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	ClearDiscount bool             `json:"clear_discount,omitempty"`
	MinPrice      *decimal.Decimal `json:"min_price,omitempty"`
	ClearMinPrice bool             `json:"clear_min_price,omitempty"`
	IsBargainable *bool            `json:"is_bargainable,omitempty"`
	Stock         *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

func (r updateProductRequest) toInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Name:          r.Name,
		Description:   r.Description,
		Images:        r.Images,
		Sizes:         r.Sizes,
		Colors:        r.Colors,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		ClearDiscount: r.ClearDiscount,
		MinPrice:      r.MinPrice,
		ClearMinPrice: r.ClearMinPrice,
		IsBargainable: r.IsBargainable,
		Stock:         r.Stock,
		IsActive:      r.IsActive,
	}
	if r.Category != nil {
		category, err := enums.ParseProductCategory(strings.TrimSpace(*r.Category))
		if err != nil {
			return productsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		input.Category = &category
	}
	return input, nil
}

func parseProductListQuery(r *http.Request) (productsvc.ListQuery, error) {
	var query productsvc.ListQuery

	params, err := validators.ParsePagination(r)
	if err != nil {
		return query, err
	}
	query.Pagination = params

	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		category, err := enums.ParseProductCategory(raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		query.Filters.Category = &category
	}
	if query.Filters.StoreID, err = validators.ParseQueryUUID(r, "store_id"); err != nil {
		return query, err
	}
	if query.Filters.PriceMin, err = validators.ParseQueryDecimal(r, "price_min"); err != nil {
		return query, err
	}
	if query.Filters.PriceMax, err = validators.ParseQueryDecimal(r, "price_max"); err != nil {
		return query, err
	}
	if min, max := query.Filters.PriceMin, query.Filters.PriceMax; min != nil && max != nil && min.GreaterThan(*max) {
		return query, pkgerrors.New(pkgerrors.CodeValidation, "price_min exceeds price_max")
	}
	if query.Filters.Bargainable, err = validators.ParseQueryBool(r, "bargainable"); err != nil {
		return query, err
	}
	inStock, err := validators.ParseQueryBool(r, "in_stock")
	if err != nil {
		return query, err
	}
	query.Filters.InStockOnly = inStock != nil && *inStock
	query.Filters.Query = validators.SanitizeString(q.Get("q"), 100)
	return query, nil
}
