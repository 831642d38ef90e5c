package bargains

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Repository persists bargains and their message threads.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to bargain persistence.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ExpireScope narrows a sweep to one party; the zero value sweeps everything.
type ExpireScope struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
}

// listQuery is the repository-level form of ListParams.
type listQuery struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   *enums.BargainStatus
	Params   pagination.Params
}

// Create inserts a new bargain row.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, bargain *models.Bargain) error {
	if bargain.ID == uuid.Nil {
		bargain.ID = uuid.New()
	}
	return r.Conn(ctx, tx).Omit("Messages").Create(bargain).Error
}

// AddMessage appends an entry to the bargain thread.
func (r *Repository) AddMessage(ctx context.Context, tx *gorm.DB, message *models.BargainMessage) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	return r.Conn(ctx, tx).Create(message).Error
}

// GetByID loads a bargain with its thread in posting order.
func (r *Repository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Bargain, error) {
	var bargain models.Bargain
	err := r.Conn(ctx, tx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		First(&bargain, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &bargain, nil
}

// HasActive reports whether the buyer already negotiates on the product.
func (r *Repository) HasActive(ctx context.Context, tx *gorm.DB, buyerID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.Conn(ctx, tx).
		Model(&models.Bargain{}).
		Where("buyer_id = ? AND product_id = ? AND status IN ?", buyerID, productID, enums.ActiveBargainStatuses).
		Count(&count).Error
	return count > 0, err
}

// Transition persists the mutable negotiation fields of bargain, guarded by
// the status and version the caller read. The caller bumps bargain.Version.
func (r *Repository) Transition(ctx context.Context, tx *gorm.DB, bargain *models.Bargain, fromStatus enums.BargainStatus, fromVersion int) error {
	conn := r.Conn(ctx, tx)
	res := conn.
		Model(&models.Bargain{}).
		Where("id = ? AND status = ? AND version = ?", bargain.ID, fromStatus, fromVersion).
		Updates(map[string]any{
			"status":           bargain.Status,
			"counter_offer":    bargain.CounterOffer,
			"final_price":      bargain.FinalPrice,
			"counter_count":    bargain.CounterCount,
			"expires_at":       bargain.ExpiresAt,
			"accepted_at":      bargain.AcceptedAt,
			"rejected_at":      bargain.RejectedAt,
			"expired_at":       bargain.ExpiredAt,
			"rejection_reason": bargain.RejectionReason,
			"version":          bargain.Version,
			"updated_at":       conn.NowFunc(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "bargain was modified concurrently").
			WithDetails(map[string]any{"bargain_id": bargain.ID.String()})
	}
	return nil
}

// ExpireStale flips every active bargain whose expires_at <= now to expired
// in one statement. Running it twice is a no-op.
func (r *Repository) ExpireStale(ctx context.Context, tx *gorm.DB, now time.Time, scope ExpireScope) (int64, error) {
	qb := r.Conn(ctx, tx).
		Model(&models.Bargain{}).
		Where("status IN ? AND expires_at <= ?", enums.ActiveBargainStatuses, now)
	if scope.BuyerID != nil {
		qb = qb.Where("buyer_id = ?", *scope.BuyerID)
	}
	if scope.SellerID != nil {
		qb = qb.Where("seller_id = ?", *scope.SellerID)
	}
	res := qb.Updates(map[string]any{
		"status":     enums.BargainStatusExpired,
		"expired_at": now,
		"version":    gorm.Expr("version + 1"),
		"updated_at": now,
	})
	return res.RowsAffected, res.Error
}

// Consume links an accepted, unused bargain to an order. It reports false
// when the bargain is not accepted, belongs to someone else or was used.
func (r *Repository) Consume(ctx context.Context, tx *gorm.DB, buyerID, bargainID, orderID uuid.UUID) (bool, error) {
	conn := r.Conn(ctx, tx)
	res := conn.
		Model(&models.Bargain{}).
		Where("id = ? AND buyer_id = ? AND status = ? AND order_id IS NULL", bargainID, buyerID, enums.BargainStatusAccepted).
		Updates(map[string]any{
			"order_id":   orderID,
			"version":    gorm.Expr("version + 1"),
			"updated_at": conn.NowFunc(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List pages bargains for one party, newest first, without messages.
func (r *Repository) List(ctx context.Context, query listQuery) ([]models.Bargain, string, error) {
	qb := r.DB(ctx).Model(&models.Bargain{})
	if query.BuyerID != nil {
		qb = qb.Where("buyer_id = ?", *query.BuyerID)
	}
	if query.SellerID != nil {
		qb = qb.Where("seller_id = ?", *query.SellerID)
	}
	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}
	return pagination.Find(qb, query.Params, func(b models.Bargain) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
	})
}
