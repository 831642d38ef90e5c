package enums

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationOrderPlaced         NotificationType = "order_placed"
	NotificationOrderConfirmed      NotificationType = "order_confirmed"
	NotificationOrderPacked         NotificationType = "order_packed"
	NotificationOrderShipped        NotificationType = "order_shipped"
	NotificationOrderOutForDelivery NotificationType = "order_out_for_delivery"
	NotificationOrderDelivered      NotificationType = "order_delivered"
	NotificationOrderCancelled      NotificationType = "order_cancelled"
	NotificationBargainReceived     NotificationType = "bargain_received"
	NotificationBargainAccepted     NotificationType = "bargain_accepted"
	NotificationBargainRejected     NotificationType = "bargain_rejected"
	NotificationBargainCountered    NotificationType = "bargain_countered"
	NotificationBargainExpired      NotificationType = "bargain_expired"
	NotificationPaymentReceived     NotificationType = "payment_received"
	NotificationPaymentSettled      NotificationType = "payment_settled"
	NotificationPaymentFailed       NotificationType = "payment_failed"
)

var notificationTypes = newSet("notification type",
	NotificationOrderPlaced,
	NotificationOrderConfirmed,
	NotificationOrderPacked,
	NotificationOrderShipped,
	NotificationOrderOutForDelivery,
	NotificationOrderDelivered,
	NotificationOrderCancelled,
	NotificationBargainReceived,
	NotificationBargainAccepted,
	NotificationBargainRejected,
	NotificationBargainCountered,
	NotificationBargainExpired,
	NotificationPaymentReceived,
	NotificationPaymentSettled,
	NotificationPaymentFailed,
)

func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }

// NotificationForOrderStatus returns the buyer-facing notification for a fulfillment step.
func NotificationForOrderStatus(status OrderStatus) (NotificationType, bool) {
	candidate := NotificationType("order_" + string(status))
	return candidate, candidate.IsValid()
}

func ParseNotificationType(value string) (NotificationType, error) {
	return notificationTypes.parse(value)
}
