package bargains

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// ProposeInput is a buyer's opening offer.
type ProposeInput struct {
	ProductID     uuid.UUID
	ProposedPrice decimal.Decimal
	Quantity      int
	SelectedSize  *string
	SelectedColor *string
	Message       string
}

// RespondInput is the seller's answer to an open bargain.
type RespondInput struct {
	Action          enums.BargainAction
	CounterOffer    *decimal.Decimal
	RejectionReason string
	Message         string
}

// BuyerRespondInput is the buyer's answer to a counter offer.
type BuyerRespondInput struct {
	Action  enums.BargainAction
	Message string
}

// ListParams filters a party's bargain list.
type ListParams struct {
	Status *enums.BargainStatus
	pagination.Params
}

// ListResult is a cursor page of bargains.
type ListResult struct {
	Bargains   []BargainDTO `json:"bargains"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// MessageDTO is one thread entry.
type MessageDTO struct {
	ID        uuid.UUID           `json:"id"`
	Sender    enums.BargainSender `json:"sender"`
	Text      string              `json:"text"`
	CreatedAt time.Time           `json:"created_at"`
}

// BargainDTO exposes a bargain with its derived fields.
type BargainDTO struct {
	ID                   uuid.UUID           `json:"id"`
	ProductID            uuid.UUID           `json:"product_id"`
	BuyerID              uuid.UUID           `json:"buyer_id"`
	SellerID             uuid.UUID           `json:"seller_id"`
	StoreID              uuid.UUID           `json:"store_id"`
	OriginalPrice        decimal.Decimal     `json:"original_price"`
	ProposedPrice        decimal.Decimal     `json:"proposed_price"`
	CounterOffer         *decimal.Decimal    `json:"counter_offer,omitempty"`
	FinalPrice           *decimal.Decimal    `json:"final_price,omitempty"`
	Status               enums.BargainStatus `json:"status"`
	Quantity             int                 `json:"quantity"`
	SelectedSize         *string             `json:"selected_size,omitempty"`
	SelectedColor        *string             `json:"selected_color,omitempty"`
	CounterCount         int                 `json:"counter_count"`
	RejectionReason      *string             `json:"rejection_reason,omitempty"`
	DiscountPercentage   int64               `json:"discount_percentage"`
	ExpiresAt            time.Time           `json:"expires_at"`
	TimeRemainingSeconds int64               `json:"time_remaining_seconds"`
	AcceptedAt           *time.Time          `json:"accepted_at,omitempty"`
	RejectedAt           *time.Time          `json:"rejected_at,omitempty"`
	ExpiredAt            *time.Time          `json:"expired_at,omitempty"`
	OrderID              *uuid.UUID          `json:"order_id,omitempty"`
	Version              int                 `json:"version"`
	Messages             []MessageDTO        `json:"messages,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// FromModel maps a bargain into its DTO as seen at now.
func FromModel(b *models.Bargain, now time.Time) *BargainDTO {
	if b == nil {
		return nil
	}
	dto := &BargainDTO{
		ID:                 b.ID,
		ProductID:          b.ProductID,
		BuyerID:            b.BuyerID,
		SellerID:           b.SellerID,
		StoreID:            b.StoreID,
		OriginalPrice:      b.OriginalPrice,
		ProposedPrice:      b.ProposedPrice,
		CounterOffer:       nullDecimalPtr(b.CounterOffer),
		FinalPrice:         nullDecimalPtr(b.FinalPrice),
		Status:             b.Status,
		Quantity:           b.Quantity,
		SelectedSize:       b.SelectedSize,
		SelectedColor:      b.SelectedColor,
		CounterCount:       b.CounterCount,
		RejectionReason:    b.RejectionReason,
		DiscountPercentage: b.DiscountPercentage(),
		ExpiresAt:          b.ExpiresAt,
		AcceptedAt:         b.AcceptedAt,
		RejectedAt:         b.RejectedAt,
		ExpiredAt:          b.ExpiredAt,
		OrderID:            b.OrderID,
		Version:            b.Version,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if b.Status.IsActive() {
		dto.TimeRemainingSeconds = int64(b.TimeRemaining(now).Seconds())
	}
	for _, m := range b.Messages {
		dto.Messages = append(dto.Messages, MessageDTO{
			ID:        m.ID,
			Sender:    m.Sender,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}
	return dto
}

func nullDecimalPtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}
