package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Repository persists seller payout transactions. Every mutation after
// creation is a conditional update on the current status.
type Repository struct {
	repo.Base
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

type listQuery struct {
	SellerID uuid.UUID
	Status   *enums.TransactionStatus
	Params   pagination.Params
}

type statusTotal struct {
	Status enums.TransactionStatus
	Count  int64
	Net    decimal.Decimal
}

func (r *Repository) Create(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	txn.Recalculate()
	return r.Conn(ctx, tx).Create(txn).Error
}

func (r *Repository) GetByOrderID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.Conn(ctx, tx).First(&txn, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListDue returns held transactions created at or before cutoff, plus
// processing ones whose claim is older than staleBefore, oldest first.
func (r *Repository) ListDue(ctx context.Context, cutoff, staleBefore time.Time, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.DB(ctx).
		Where("(status = ? AND created_at <= ?) OR (status = ? AND last_attempt_at <= ?)",
			enums.TransactionStatusHeld, cutoff, enums.TransactionStatusProcessing, staleBefore).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Claim moves a held transaction, or a processing one abandoned before
// staleBefore, to processing. It reports false when another writer got there first.
func (r *Repository) Claim(ctx context.Context, id uuid.UUID, staleBefore, at time.Time) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND (status = ? OR (status = ? AND last_attempt_at <= ?))",
			id, enums.TransactionStatusHeld, enums.TransactionStatusProcessing, staleBefore).
		Updates(map[string]any{
			"status":          enums.TransactionStatusProcessing,
			"last_attempt_at": at,
			"updated_at":      at,
		})
	return res.RowsAffected == 1, res.Error
}

// MarkTransferred releases a claimed transaction. It reports false when the row is no longer processing.
func (r *Repository) MarkTransferred(ctx context.Context, tx *gorm.DB, id uuid.UUID, transferID string, at time.Time) (bool, error) {
	res := r.Conn(ctx, tx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionStatusProcessing).
		Updates(map[string]any{
			"status":          enums.TransactionStatusTransferred,
			"transfer_id":     transferID,
			"transfer_date":   at,
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"last_attempt_at": at,
			"last_error":      nil,
			"updated_at":      at,
		})
	return res.RowsAffected == 1, res.Error
}

// MarkFailed moves a claimed transaction to failed after a permanent rejection.
func (r *Repository) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, reason string, at time.Time) (bool, error) {
	res := r.Conn(ctx, tx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionStatusProcessing).
		Updates(map[string]any{
			"status":          enums.TransactionStatusFailed,
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"last_attempt_at": at,
			"last_error":      reason,
			"updated_at":      at,
		})
	return res.RowsAffected == 1, res.Error
}

// RecordAttempt notes a retryable failure and hands the row back to the held pool.
func (r *Repository) RecordAttempt(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	return r.DB(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, []enums.TransactionStatus{enums.TransactionStatusHeld, enums.TransactionStatusProcessing}).
		Updates(map[string]any{
			"status":          enums.TransactionStatusHeld,
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"last_attempt_at": at,
			"last_error":      reason,
			"updated_at":      at,
		}).Error
}

// CancelByOrder cancels the order's held transaction and returns the rows touched.
func (r *Repository) CancelByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, at time.Time) (int64, error) {
	res := r.Conn(ctx, tx).
		Model(&models.Transaction{}).
		Where("order_id = ? AND status = ?", orderID, enums.TransactionStatusHeld).
		Updates(map[string]any{
			"status":     enums.TransactionStatusCancelled,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) List(ctx context.Context, query listQuery) ([]models.Transaction, string, error) {
	qb := r.DB(ctx).Model(&models.Transaction{}).Where("seller_id = ?", query.SellerID)
	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}
	return pagination.Find(qb, query.Params, func(t models.Transaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
}

// Totals aggregates count and net amount per status for one seller.
func (r *Repository) Totals(ctx context.Context, sellerID uuid.UUID) ([]statusTotal, error) {
	var rows []statusTotal
	err := r.DB(ctx).
		Model(&models.Transaction{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(net_amount), 0) AS net").
		Where("seller_id = ?", sellerID).
		Group("status").
		Scan(&rows).Error
	return rows, err
}
