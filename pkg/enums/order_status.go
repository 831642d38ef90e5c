package enums

// OrderStatus tracks the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "placed"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusReturned       OrderStatus = "returned"
)

var orderStatuses = newSet("order status",
	OrderStatusPlaced,
	OrderStatusConfirmed,
	OrderStatusPacked,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
)

// Orders move strictly forward; cancellation is possible until packing.
var orderFlow = graph[OrderStatus]{
	OrderStatusPlaced:         {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPacked, OrderStatusCancelled},
	OrderStatusPacked:         {OrderStatusShipped},
	OrderStatusShipped:        {OrderStatusOutForDelivery},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
}

func (s OrderStatus) String() string { return string(s) }
func (s OrderStatus) IsValid() bool  { return orderStatuses.has(s) }

// IsTerminal reports whether the order has left the fulfillment pipeline.
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && orderFlow.isSink(s)
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return orderFlow.allows(s, next)
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return orderStatuses.parse(value)
}
