package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

const (
	decrementStockSQL = `UPDATE products SET stock = stock - ?, total_sold = total_sold + ?, updated_at = ? WHERE id = ? AND is_active AND stock >= ?`
	restoreStockSQL   = `UPDATE products SET stock = stock + ?, total_sold = total_sold - ?, updated_at = ? WHERE id = ? AND total_sold >= ?`
)

// Repository persists product listings and owns every stock mutation.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// GetByID loads the product; tx may be nil.
func (r *Repository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.Conn(ctx, tx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetForUpdate reads the product inside the caller's transaction. Stock is
// never written from the returned snapshot; use DecrementStock/RestoreStock.
func (r *Repository) GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	return r.GetByID(ctx, tx, id)
}

// DecrementStock reserves qty units in a single conditional statement.
func (r *Repository) DecrementStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	conn := r.Conn(ctx, tx)
	res := conn.Exec(decrementStockSQL, qty, qty, conn.NowFunc(), id, qty)
	if res.Error != nil {
		return fmt.Errorf("decrement stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"product_id": id.String(), "requested": qty})
	}
	return nil
}

// RestoreStock is the exact inverse of DecrementStock.
func (r *Repository) RestoreStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	conn := r.Conn(ctx, tx)
	res := conn.Exec(restoreStockSQL, qty, qty, conn.NowFunc(), id, qty)
	if res.Error != nil {
		return fmt.Errorf("restore stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "stock restore did not match a sold quantity").
			WithDetails(map[string]any{"product_id": id.String(), "quantity": qty})
	}
	return nil
}

// Create inserts a product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.DB(ctx).Create(product).Error
}

// Update persists seller-editable columns. Stock counters are written only
// when the seller restocks; total_sold is never touched here.
// Update writes the seller-editable columns. stock is written only when
// setStock is true, so a concurrent sale is never overwritten by an edit.
func (r *Repository) Update(ctx context.Context, product *models.Product, setStock bool) error {
	columns := []any{"description", "category", "images", "sizes", "colors",
		"price", "discount_price", "min_price", "is_bargainable", "is_active", "updated_at"}
	if setStock {
		columns = append(columns, "stock")
	}
	return r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select("name", columns...).
		Updates(product).Error
}

// ListActive pages the public catalog, newest first.
func (r *Repository) ListActive(ctx context.Context, query ListQuery) ([]models.Product, string, error) {
	qb := r.DB(ctx).Model(&models.Product{}).Where("is_active = ?", true)
	qb = applyFilters(qb, query.Filters)
	return r.page(qb, query.Pagination)
}

// ListByStore pages a single store's products, including inactive ones.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.Product, string, error) {
	qb := r.DB(ctx).Model(&models.Product{}).Where("store_id = ?", storeID)
	return r.page(qb, params)
}

func (r *Repository) page(qb *gorm.DB, params pagination.Params) ([]models.Product, string, error) {
	return pagination.Find(qb, params, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
}

func applyFilters(qb *gorm.DB, filter ListFilters) *gorm.DB {
	if filter.Category != nil {
		qb = qb.Where("category = ?", *filter.Category)
	}
	if filter.StoreID != nil {
		qb = qb.Where("store_id = ?", *filter.StoreID)
	}
	if filter.PriceMin != nil {
		qb = qb.Where("COALESCE(discount_price, price) >= CAST(? AS NUMERIC)", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		qb = qb.Where("COALESCE(discount_price, price) <= CAST(? AS NUMERIC)", *filter.PriceMax)
	}
	if filter.Bargainable != nil {
		qb = qb.Where("is_bargainable = ?", *filter.Bargainable)
	}
	if filter.InStockOnly {
		qb = qb.Where("stock > 0")
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", pattern, pattern)
	}
	return qb
}
