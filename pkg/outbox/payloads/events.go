package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// BargainEvent is shared by every bargain.* event; Status tells the consumer which step happened.
type BargainEvent struct {
	BargainID     uuid.UUID           `json:"bargain_id"`
	ProductID     uuid.UUID           `json:"product_id"`
	BuyerID       uuid.UUID           `json:"buyer_id"`
	SellerID      uuid.UUID           `json:"seller_id"`
	StoreID       uuid.UUID           `json:"store_id"`
	Status        enums.BargainStatus `json:"status"`
	OriginalPrice decimal.Decimal     `json:"original_price"`
	ProposedPrice decimal.Decimal     `json:"proposed_price"`
	CounterOffer  *decimal.Decimal    `json:"counter_offer,omitempty"`
	FinalPrice    *decimal.Decimal    `json:"final_price,omitempty"`
	CounterCount  int                 `json:"counter_count"`
	ExpiresAt     time.Time           `json:"expires_at"`
}

// OrderPlacedEvent is emitted once per order after stock has been committed.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	BuyerID       uuid.UUID           `json:"buyer_id"`
	SellerID      uuid.UUID           `json:"seller_id"`
	StoreID       uuid.UUID           `json:"store_id"`
	ItemCount     int                 `json:"item_count"`
	BargainIDs    []uuid.UUID         `json:"bargain_ids,omitempty"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}

// OrderStatusChangedEvent records a seller-driven fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	SellerID uuid.UUID         `json:"seller_id"`
	From     enums.OrderStatus `json:"from"`
	To       enums.OrderStatus `json:"to"`
	Note     string            `json:"note,omitempty"`
	Location string            `json:"location,omitempty"`
}

// OrderCancelledEvent is emitted when a buyer cancels inside the cancel window.
type OrderCancelledEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	BuyerID  uuid.UUID `json:"buyer_id"`
	SellerID uuid.UUID `json:"seller_id"`
	Reason   string    `json:"reason,omitempty"`
	Refunded bool      `json:"refunded"`
}

// OrderPaidEvent is emitted when payment completes and the held transaction exists.
type OrderPaidEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	GatewayTxnID  string              `json:"gateway_txn_id,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	PaidAt        time.Time           `json:"paid_at"`
}

// SettlementEvent covers settlement.transferred and settlement.failed.
type SettlementEvent struct {
	TransactionID     uuid.UUID       `json:"transaction_id"`
	TransactionNumber string          `json:"transaction_number"`
	OrderID           uuid.UUID       `json:"order_id"`
	SellerID          uuid.UUID       `json:"seller_id"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	Currency          string          `json:"currency"`
	TransferID        string          `json:"transfer_id,omitempty"`
	Error             string          `json:"error,omitempty"`
}
