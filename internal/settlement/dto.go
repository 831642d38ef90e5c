package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// ListParams filters a seller's transaction history.
type ListParams struct {
	Status *enums.TransactionStatus
	pagination.Params
}

// ListResult is a cursor page of transactions.
type ListResult struct {
	Transactions []TransactionDTO `json:"transactions"`
	NextCursor   string           `json:"next_cursor,omitempty"`
}

// SweepResult counts what one settlement pass did.
type SweepResult struct {
	Scanned     int `json:"scanned"`
	Transferred int `json:"transferred"`
	Retrying    int `json:"retrying"`
	Failed      int `json:"failed"`
	Unrecorded  int `json:"unrecorded"`
	Skipped     int `json:"skipped"`
}

// SellerSummary is a seller's earnings overview.
type SellerSummary struct {
	Currency          string          `json:"currency"`
	HeldAmount        decimal.Decimal `json:"held_amount"`
	HeldCount         int64           `json:"held_count"`
	TransferredAmount decimal.Decimal `json:"transferred_amount"`
	TransferredCount  int64           `json:"transferred_count"`
	FailedCount       int64           `json:"failed_count"`
	CancelledCount    int64           `json:"cancelled_count"`
	TotalEarnings     decimal.Decimal `json:"total_earnings"`
}

// TransactionDTO is the seller-facing view of a payout.
type TransactionDTO struct {
	ID                uuid.UUID               `json:"id"`
	TransactionNumber string                  `json:"transaction_number"`
	OrderID           uuid.UUID               `json:"order_id"`
	Amount            decimal.Decimal         `json:"amount"`
	PlatformFee       decimal.Decimal         `json:"platform_fee"`
	ProcessingFee     decimal.Decimal         `json:"processing_fee"`
	NetAmount         decimal.Decimal         `json:"net_amount"`
	Currency          string                  `json:"currency"`
	Status            enums.TransactionStatus `json:"status"`
	TransferID        *string                 `json:"transfer_id,omitempty"`
	TransferDate      *time.Time              `json:"transfer_date,omitempty"`
	AttemptCount      int                     `json:"attempt_count"`
	CreatedAt         time.Time               `json:"created_at"`
}

func fromModel(t models.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:                t.ID,
		TransactionNumber: t.TransactionNumber,
		OrderID:           t.OrderID,
		Amount:            t.Amount,
		PlatformFee:       t.PlatformFee,
		ProcessingFee:     t.ProcessingFee,
		NetAmount:         t.NetAmount,
		Currency:          t.Currency,
		Status:            t.Status,
		TransferID:        t.TransferID,
		TransferDate:      t.TransferDate,
		AttemptCount:      t.AttemptCount,
		CreatedAt:         t.CreatedAt,
	}
}
