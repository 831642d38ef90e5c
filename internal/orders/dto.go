package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// LineItemInput is one requested line. BargainID prices it at the negotiated amount.
type LineItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	BargainID *uuid.UUID
	Size      *string
	Color     *string
}

// CreateOrderInput is a buyer's checkout request.
type CreateOrderInput struct {
	Items           []LineItemInput
	ShippingAddress types.Address
	PaymentMethod   enums.PaymentMethod
}

// UpdateStatusInput moves an order along the fulfillment pipeline.
type UpdateStatusInput struct {
	Status   enums.OrderStatus
	Note     string
	Location string
}

// ConfirmPaymentInput records a completed online payment.
type ConfirmPaymentInput struct {
	GatewayTxnID string
}

// ListParams filters a party's order list.
type ListParams struct {
	Status *enums.OrderStatus
	pagination.Params
}

// ListResult is a cursor page of orders.
type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// OrderItemDTO is a priced order line.
type OrderItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	BargainID *uuid.UUID      `json:"bargain_id,omitempty"`
	Name      string          `json:"name"`
	Image     *string         `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Size      *string         `json:"size,omitempty"`
	Color     *string         `json:"color,omitempty"`
}

// StatusEventDTO is one row of the order timeline.
type StatusEventDTO struct {
	Status    enums.OrderStatus `json:"status"`
	Note      *string           `json:"note,omitempty"`
	Location  *string           `json:"location,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderDTO exposes an order with its derived flags.
type OrderDTO struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNumber        string              `json:"order_number"`
	BuyerID            uuid.UUID           `json:"buyer_id"`
	SellerID           uuid.UUID           `json:"seller_id"`
	StoreID            uuid.UUID           `json:"store_id"`
	Status             enums.OrderStatus   `json:"status"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	PlatformFee        decimal.Decimal     `json:"platform_fee"`
	DeliveryFee        decimal.Decimal     `json:"delivery_fee"`
	Discount           decimal.Decimal     `json:"discount"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	SellerAmount       decimal.Decimal     `json:"seller_amount"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	PaidAt             *time.Time          `json:"paid_at,omitempty"`
	ShippingAddress    types.Address       `json:"shipping_address"`
	CancelReason       *string             `json:"cancel_reason,omitempty"`
	PlacedAt           time.Time           `json:"placed_at"`
	ConfirmedAt        *time.Time          `json:"confirmed_at,omitempty"`
	PackedAt           *time.Time          `json:"packed_at,omitempty"`
	ShippedAt          *time.Time          `json:"shipped_at,omitempty"`
	OutForDeliveryAt   *time.Time          `json:"out_for_delivery_at,omitempty"`
	DeliveredAt        *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	ReturnWindowEndsAt *time.Time          `json:"return_window_ends_at,omitempty"`
	CanCancel          bool                `json:"can_cancel"`
	CanReturn          bool                `json:"can_return"`
	ItemCount          int                 `json:"item_count"`
	Items              []OrderItemDTO      `json:"items"`
	StatusHistory      []StatusEventDTO    `json:"status_history,omitempty"`
	Version            int                 `json:"version"`
}

// FromModel maps an order into its DTO as seen at now.
func FromModel(o *models.Order, now time.Time, cancelWindow time.Duration) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		BuyerID:            o.BuyerID,
		SellerID:           o.SellerID,
		StoreID:            o.StoreID,
		Status:             o.Status,
		Subtotal:           o.Subtotal,
		PlatformFee:        o.PlatformFee,
		DeliveryFee:        o.DeliveryFee,
		Discount:           o.Discount,
		TotalAmount:        o.TotalAmount,
		SellerAmount:       o.SellerAmount,
		PaymentMethod:      o.PaymentMethod,
		PaymentStatus:      o.PaymentStatus,
		PaidAt:             o.PaidAt,
		ShippingAddress:    o.ShippingAddress,
		CancelReason:       o.CancelReason,
		PlacedAt:           o.PlacedAt,
		ConfirmedAt:        o.ConfirmedAt,
		PackedAt:           o.PackedAt,
		ShippedAt:          o.ShippedAt,
		OutForDeliveryAt:   o.OutForDeliveryAt,
		DeliveredAt:        o.DeliveredAt,
		CancelledAt:        o.CancelledAt,
		ReturnWindowEndsAt: o.ReturnWindowEndsAt,
		CanCancel:          o.CanCancel(now, cancelWindow),
		CanReturn:          o.CanReturn(now),
		Items:              make([]OrderItemDTO, 0, len(o.Items)),
		Version:            o.Version,
	}
	for _, item := range o.Items {
		dto.ItemCount += item.Quantity
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			BargainID: item.BargainID,
			Name:      item.Name,
			Image:     item.Image,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
			Size:      item.Size,
			Color:     item.Color,
		})
	}
	for _, ev := range o.StatusHistory {
		dto.StatusHistory = append(dto.StatusHistory, StatusEventDTO{
			Status:    ev.Status,
			Note:      ev.Note,
			Location:  ev.Location,
			CreatedAt: ev.CreatedAt,
		})
	}
	return dto
}
