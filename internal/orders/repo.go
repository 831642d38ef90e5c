package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Repository persists orders, their lines and status history.
type Repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

type listQuery struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   *enums.OrderStatus
	Params   pagination.Params
}

// Create inserts the order header, its items and any initial history rows.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	conn := r.Conn(ctx, tx)
	if err := conn.Omit("Items", "StatusHistory").Create(order).Error; err != nil {
		return err
	}
	if len(order.Items) > 0 {
		if err := conn.Create(&order.Items).Error; err != nil {
			return err
		}
	}
	if len(order.StatusHistory) > 0 {
		if err := conn.Create(&order.StatusHistory).Error; err != nil {
			return err
		}
	}
	return nil
}

// AddStatusEvent appends one history row.
func (r *Repository) AddStatusEvent(ctx context.Context, tx *gorm.DB, event *models.OrderStatusEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.Conn(ctx, tx).Create(event).Error
}

// GetByID loads an order with items in position order and history oldest first.
func (r *Repository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.Conn(ctx, tx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Transition writes the mutable order columns guarded by the status and
// version the caller read. The caller bumps order.Version.
func (r *Repository) Transition(ctx context.Context, tx *gorm.DB, order *models.Order, fromStatus enums.OrderStatus, fromVersion int) error {
	conn := r.Conn(ctx, tx)
	res := conn.
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND version = ?", order.ID, fromStatus, fromVersion).
		Updates(map[string]any{
			"status":                 order.Status,
			"payment_status":         order.PaymentStatus,
			"payment_gateway_txn_id": order.PaymentGatewayTxnID,
			"paid_at":                order.PaidAt,
			"cancel_reason":          order.CancelReason,
			"confirmed_at":           order.ConfirmedAt,
			"packed_at":              order.PackedAt,
			"shipped_at":             order.ShippedAt,
			"out_for_delivery_at":    order.OutForDeliveryAt,
			"delivered_at":           order.DeliveredAt,
			"cancelled_at":           order.CancelledAt,
			"return_window_ends_at":  order.ReturnWindowEndsAt,
			"version":                order.Version,
			"updated_at":             conn.NowFunc(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently").
			WithDetails(map[string]any{"order_id": order.ID.String()})
	}
	return nil
}

// List pages orders for one party, newest first. Items are loaded, history is not.
func (r *Repository) List(ctx context.Context, query listQuery) ([]models.Order, string, error) {
	qb := r.DB(ctx).Model(&models.Order{})
	if query.BuyerID != nil {
		qb = qb.Where("buyer_id = ?", *query.BuyerID)
	}
	if query.SellerID != nil {
		qb = qb.Where("seller_id = ?", *query.SellerID)
	}
	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}
	qb = qb.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
	return pagination.Find(qb, query.Params, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
}
