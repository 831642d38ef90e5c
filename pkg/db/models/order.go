package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Order is a single-seller purchase placed by a buyer.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber         string              `gorm:"column:order_number;not null;uniqueIndex"`
	BuyerID             uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID            uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	StoreID             uuid.UUID           `gorm:"column:store_id;type:uuid;not null"`
	Status              enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	Subtotal            decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	PlatformFee         decimal.Decimal     `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	DeliveryFee         decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	Discount            decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null"`
	TotalAmount         decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	SellerAmount        decimal.Decimal     `gorm:"column:seller_amount;type:numeric(12,2);not null"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentStatus       enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	PaymentGatewayTxnID *string             `gorm:"column:payment_gateway_txn_id"`
	PaidAt              *time.Time          `gorm:"column:paid_at"`
	ShippingAddress     types.Address       `gorm:"column:shipping_address;type:jsonb;not null"`
	CancelReason        *string             `gorm:"column:cancel_reason"`
	PlacedAt            time.Time           `gorm:"column:placed_at;not null"`
	ConfirmedAt         *time.Time          `gorm:"column:confirmed_at"`
	PackedAt            *time.Time          `gorm:"column:packed_at"`
	ShippedAt           *time.Time          `gorm:"column:shipped_at"`
	OutForDeliveryAt    *time.Time          `gorm:"column:out_for_delivery_at"`
	DeliveredAt         *time.Time          `gorm:"column:delivered_at"`
	CancelledAt         *time.Time          `gorm:"column:cancelled_at"`
	ReturnWindowEndsAt  *time.Time          `gorm:"column:return_window_ends_at"`
	Version             int                 `gorm:"column:version;not null;default:1"`
	Items               []OrderItem         `gorm:"foreignKey:OrderID"`
	StatusHistory       []OrderStatusEvent  `gorm:"foreignKey:OrderID"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// CanCancel reports whether the buyer may still cancel at now. The boundary is inclusive.
func (o Order) CanCancel(now time.Time, window time.Duration) bool {
	if o.Status != enums.OrderStatusPlaced && o.Status != enums.OrderStatusConfirmed {
		return false
	}
	return now.Sub(o.PlacedAt) <= window
}

// CanReturn reports whether a delivered order is still inside its return window.
func (o Order) CanReturn(now time.Time) bool {
	if o.Status != enums.OrderStatusDelivered || o.ReturnWindowEndsAt == nil {
		return false
	}
	return !now.After(*o.ReturnWindowEndsAt)
}

// MarkStatus sets the timeline column that belongs to status.
func (o *Order) MarkStatus(status enums.OrderStatus, at time.Time) {
	o.Status = status
	ts := at
	switch status {
	case enums.OrderStatusConfirmed:
		o.ConfirmedAt = &ts
	case enums.OrderStatusPacked:
		o.PackedAt = &ts
	case enums.OrderStatusShipped:
		o.ShippedAt = &ts
	case enums.OrderStatusOutForDelivery:
		o.OutForDeliveryAt = &ts
	case enums.OrderStatusDelivered:
		o.DeliveredAt = &ts
	case enums.OrderStatusCancelled:
		o.CancelledAt = &ts
	}
}

// NewOrderNumber builds "ORD" + unix millis + 6 upper-case hex characters.
func NewOrderNumber(now time.Time) (string, error) {
	return stampedNumber("ORD", now)
}

// stampedNumber is prefix + unix millis + 24 random bits in upper-case hex.
// Two numbers collide only when minted in the same millisecond with the
// same random suffix.
func stampedNumber(prefix string, now time.Time) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s number entropy: %w", strings.ToLower(prefix), err)
	}
	return fmt.Sprintf("%s%d%s", prefix, now.UnixMilli(), strings.ToUpper(hex.EncodeToString(buf))), nil
}

// OrderItem is a line of an order with its price frozen at purchase time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	BargainID *uuid.UUID      `gorm:"column:bargain_id;type:uuid"`
	Name      string          `gorm:"column:name;not null"`
	Image     *string         `gorm:"column:image"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Size      *string         `gorm:"column:size"`
	Color     *string         `gorm:"column:color"`
	Position  int             `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusEvent is an insert-only entry of the order's status history.
type OrderStatusEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	Note      *string           `gorm:"column:note"`
	Location  *string           `gorm:"column:location"`
	ActorID   *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	CreatedAt time.Time         `gorm:"column:created_at;not null"`
}
