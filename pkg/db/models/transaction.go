package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Transaction is the seller payout record for one paid order.
type Transaction struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	TransactionNumber string                  `gorm:"column:transaction_number;not null;uniqueIndex"`
	OrderID           uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_transactions_order_id"`
	SellerID          uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	BuyerID           uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null"`
	StoreID           uuid.UUID               `gorm:"column:store_id;type:uuid;not null"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	PlatformFee       decimal.Decimal         `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	ProcessingFee     decimal.Decimal         `gorm:"column:processing_fee;type:numeric(12,2);not null"`
	NetAmount         decimal.Decimal         `gorm:"column:net_amount;type:numeric(12,2);not null"`
	Currency          string                  `gorm:"column:currency;not null;default:'INR'"`
	Status            enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;index"`
	TransferID        *string                 `gorm:"column:transfer_id"`
	TransferDate      *time.Time              `gorm:"column:transfer_date"`
	AttemptCount      int                     `gorm:"column:attempt_count;not null;default:0"`
	LastError         *string                 `gorm:"column:last_error"`
	LastAttemptAt     *time.Time              `gorm:"column:last_attempt_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// Recalculate derives NetAmount from the gross amount and fees.
func (t *Transaction) Recalculate() {
	t.NetAmount = t.Amount.Sub(t.PlatformFee).Sub(t.ProcessingFee)
}

// NewTransactionNumber builds "TXN" + unix millis + 6 upper-case hex characters.
func NewTransactionNumber(now time.Time) (string, error) {
	return stampedNumber("TXN", now)
}
