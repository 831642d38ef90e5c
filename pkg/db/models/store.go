package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is a seller's storefront. One store per seller.
type Store struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID         uuid.UUID `gorm:"column:owner_id;type:uuid;not null;uniqueIndex"`
	Name            string    `gorm:"column:name;not null"`
	Description     *string   `gorm:"column:description"`
	City            string    `gorm:"column:city;not null"`
	IsActive        bool      `gorm:"column:is_active;not null"`
	PayoutAccountID *string   `gorm:"column:payout_account_id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
