package products

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

const (
	nameMinLen        = 2
	nameMaxLen        = 200
	descriptionMaxLen = 2000
)

type productRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product, setStock bool) error
	ListActive(ctx context.Context, query ListQuery) ([]models.Product, string, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.Product, string, error)
}

type storeLookup interface {
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error)
}

// Service exposes seller product management and the public catalog.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, actor auth.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, query ListQuery) (*ListResult, error)
	ListMine(ctx context.Context, actor auth.Actor, params pagination.Params) (*ListResult, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name          string
	Description   *string
	Category      enums.ProductCategory
	Images        []string
	Sizes         []string
	Colors        []string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	MinPrice      *decimal.Decimal
	IsBargainable bool
	Stock         int
	IsActive      *bool
}

// UpdateProductInput is a partial update. ClearDiscount/ClearMinPrice drop
// the optional prices since a nil pointer means "unchanged".
type UpdateProductInput struct {
	Name          *string
	Description   *string
	Category      *enums.ProductCategory
	Images        *[]string
	Sizes         *[]string
	Colors        *[]string
	Price         *decimal.Decimal
	DiscountPrice *decimal.Decimal
	ClearDiscount bool
	MinPrice      *decimal.Decimal
	ClearMinPrice bool
	IsBargainable *bool
	Stock         *int
	IsActive      *bool
}

type service struct {
	repo   productRepository
	stores storeLookup
}

// NewService builds the product service.
func NewService(repo productRepository, stores storeLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store lookup required")
	}
	return &service{repo: repo, stores: stores}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateProductInput) (*ProductDTO, error) {
	store, err := s.sellerStore(ctx, actor)
	if err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product := &models.Product{
		ID:            uuid.New(),
		StoreID:       store.ID,
		SellerID:      actor.UserID,
		Name:          strings.TrimSpace(input.Name),
		Description:   trimPtr(input.Description),
		Category:      input.Category,
		Images:        types.StringList(cleanList(input.Images)),
		Sizes:         types.StringList(cleanList(input.Sizes)),
		Colors:        types.StringList(cleanList(input.Colors)),
		Price:         input.Price.Round(2),
		DiscountPrice: toNullDecimal(input.DiscountPrice),
		MinPrice:      toNullDecimal(input.MinPrice),
		IsBargainable: input.IsBargainable,
		Stock:         input.Stock,
		IsActive:      active,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return FromModel(product), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = trimPtr(input.Description)
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Images != nil {
		product.Images = types.StringList(cleanList(*input.Images))
	}
	if input.Sizes != nil {
		product.Sizes = types.StringList(cleanList(*input.Sizes))
	}
	if input.Colors != nil {
		product.Colors = types.StringList(cleanList(*input.Colors))
	}
	if input.Price != nil {
		product.Price = input.Price.Round(2)
	}
	switch {
	case input.ClearDiscount:
		product.DiscountPrice = decimal.NullDecimal{}
	case input.DiscountPrice != nil:
		product.DiscountPrice = toNullDecimal(input.DiscountPrice)
	}
	switch {
	case input.ClearMinPrice:
		product.MinPrice = decimal.NullDecimal{}
	case input.MinPrice != nil:
		product.MinPrice = toNullDecimal(input.MinPrice)
	}
	if input.IsBargainable != nil {
		product.IsBargainable = *input.IsBargainable
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, product, input.Stock != nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	// stock and total_sold may have moved since the read above
	fresh, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	return FromModel(fresh), nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return FromModel(product), nil
}

func (s *service) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	f := query.Filters
	if f.Category != nil && !f.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if f.PriceMin != nil && f.PriceMax != nil && f.PriceMin.GreaterThan(*f.PriceMax) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_min cannot exceed price_max")
	}
	rows, next, err := s.repo.ListActive(ctx, query)
	if err != nil {
		return nil, asListError(err)
	}
	return &ListResult{Products: fromModels(rows), NextCursor: next}, nil
}

func (s *service) ListMine(ctx context.Context, actor auth.Actor, params pagination.Params) (*ListResult, error) {
	store, err := s.sellerStore(ctx, actor)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListByStore(ctx, store.ID, params)
	if err != nil {
		return nil, asListError(err)
	}
	return &ListResult{Products: fromModels(rows), NextCursor: next}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) sellerStore(ctx context.Context, actor auth.Actor) (*models.Store, error) {
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	store, err := s.stores.FindByOwner(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "create a store before listing products")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return store, nil
}

// validateProduct enforces the listing and pricing rules shared by create and update.
func validateProduct(p *models.Product) error {
	if n := utf8.RuneCountInString(p.Name); n < nameMinLen || n > nameMaxLen {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("name must be %d-%d characters", nameMinLen, nameMaxLen))
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > descriptionMaxLen {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("description cannot exceed %d characters", descriptionMaxLen))
	}
	if !p.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if p.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if p.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeInvalidPrice, "price cannot be negative")
	}
	if p.DiscountPrice.Valid {
		if p.DiscountPrice.Decimal.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeInvalidPrice, "discount price cannot be negative")
		}
		if !p.DiscountPrice.Decimal.LessThan(p.Price) {
			return pkgerrors.New(pkgerrors.CodeInvalidPrice, "discount price must be less than price")
		}
	}
	if p.MinPrice.Valid {
		if p.MinPrice.Decimal.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeInvalidPrice, "minimum price cannot be negative")
		}
		if p.MinPrice.Decimal.GreaterThan(p.EffectivePrice()) {
			return pkgerrors.New(pkgerrors.CodeInvalidPrice, "minimum price cannot exceed the selling price")
		}
	}
	return nil
}

func asListError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
}

func toNullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: v.Round(2), Valid: true}
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
