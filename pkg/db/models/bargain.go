package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Bargain is a buyer's price offer on a single product and its negotiation state.
type Bargain struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID       uuid.UUID           `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_bargains_active_buyer_product,where:status = 'pending' OR status = 'countered'"`
	BuyerID         uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index;uniqueIndex:ux_bargains_active_buyer_product"`
	SellerID        uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	StoreID         uuid.UUID           `gorm:"column:store_id;type:uuid;not null"`
	OriginalPrice   decimal.Decimal     `gorm:"column:original_price;type:numeric(12,2);not null"`
	ProposedPrice   decimal.Decimal     `gorm:"column:proposed_price;type:numeric(12,2);not null"`
	CounterOffer    decimal.NullDecimal `gorm:"column:counter_offer;type:numeric(12,2)"`
	FinalPrice      decimal.NullDecimal `gorm:"column:final_price;type:numeric(12,2)"`
	Status          enums.BargainStatus `gorm:"column:status;type:bargain_status;not null"`
	Quantity        int                 `gorm:"column:quantity;not null;default:1"`
	SelectedSize    *string             `gorm:"column:selected_size"`
	SelectedColor   *string             `gorm:"column:selected_color"`
	CounterCount    int                 `gorm:"column:counter_count;not null;default:0"`
	RejectionReason *string             `gorm:"column:rejection_reason"`
	ExpiresAt       time.Time           `gorm:"column:expires_at;not null;index"`
	AcceptedAt      *time.Time          `gorm:"column:accepted_at"`
	RejectedAt      *time.Time          `gorm:"column:rejected_at"`
	ExpiredAt       *time.Time          `gorm:"column:expired_at"`
	OrderID         *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	Version         int                 `gorm:"column:version;not null;default:1"`
	Messages        []BargainMessage    `gorm:"foreignKey:BargainID"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// CurrentOffer is the latest price on the table: the counter if any, else the proposal.
func (b Bargain) CurrentOffer() decimal.Decimal {
	if b.CounterOffer.Valid {
		return b.CounterOffer.Decimal
	}
	return b.ProposedPrice
}

// DiscountPercentage is the whole-number discount of the current offer off the original price.
func (b Bargain) DiscountPercentage() int64 {
	if !b.OriginalPrice.IsPositive() {
		return 0
	}
	return b.OriginalPrice.Sub(b.CurrentOffer()).
		Div(b.OriginalPrice).
		Mul(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// TimeRemaining never goes negative.
func (b Bargain) TimeRemaining(now time.Time) time.Duration {
	remaining := b.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired mirrors the sweep predicate expires_at <= now for active bargains.
func (b Bargain) IsExpired(now time.Time) bool {
	return b.Status.IsActive() && !b.ExpiresAt.After(now)
}

// BargainMessage is one entry in the negotiation thread. Rows are insert-only.
type BargainMessage struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BargainID uuid.UUID           `gorm:"column:bargain_id;type:uuid;not null;index"`
	Sender    enums.BargainSender `gorm:"column:sender;type:bargain_sender;not null"`
	Text      string              `gorm:"column:text;type:varchar(500);not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
