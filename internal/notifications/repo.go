package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Filter narrows an inbox listing.
type Filter struct {
	UserID     uuid.UUID
	UnreadOnly bool
}

// Repository stores in-app notifications.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) inbox(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// Page lists one page of a user's inbox, newest first.
func (r *Repository) Page(ctx context.Context, filter Filter, params pagination.Params) ([]models.Notification, string, error) {
	qb := r.inbox(ctx, filter.UserID)
	if filter.UnreadOnly {
		qb = qb.Where("read_at IS NULL")
	}
	return pagination.Find(qb, params, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
}

// MarkRead stamps read_at on one notification owned by userID. changed is
// false when it was already read. A notification that does not exist, or
// belongs to someone else, yields gorm.ErrRecordNotFound.
func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (changed bool, err error) {
	res := r.inbox(ctx, userID).Where("id = ? AND read_at IS NULL", id).UpdateColumn("read_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var n int64
	if err := r.inbox(ctx, userID).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	if n == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return false, nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.inbox(ctx, userID).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

func (r *Repository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.inbox(ctx, userID).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

// DeleteOlderThan drops notifications created before cutoff, read or not.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
