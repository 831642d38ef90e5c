package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const defaultRecentLimit = 50

// DeadLetters stores the events the publisher stopped retrying.
type DeadLetters struct {
	db *gorm.DB
}

func NewDeadLetters(db *gorm.DB) *DeadLetters {
	return &DeadLetters{db: db}
}

// BuryTx copies event into outbox_dlq. A second burial of the same event is a no-op.
func (d *DeadLetters) BuryTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	entry := event.DeadLetter(reason, cause, time.Now().UTC())
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&entry).Error
}

func (d *DeadLetters) Get(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := d.db.WithContext(ctx).Where("event_id = ?", eventID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Recent returns the newest dead letters first.
func (d *DeadLetters) Recent(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	var entries []models.OutboxDLQ
	err := d.db.WithContext(ctx).
		Order("failed_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// Requeue drops the dead letter and resets the event's attempts so the
// publisher picks it up again.
func (d *DeadLetters) Requeue(ctx context.Context, eventID uuid.UUID) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found")
		}
		res = tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "event is published or was purged")
		}
		return nil
	})
}
