package enums

// PaymentStatus tracks whether an order has been paid for.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

var paymentStatuses = newSet("payment status",
	PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded)

func (p PaymentStatus) String() string { return string(p) }
func (p PaymentStatus) IsValid() bool  { return paymentStatuses.has(p) }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return paymentStatuses.parse(value)
}

// PaymentMethod is how the buyer settles an order. Everything except cash on
// delivery is collected online before fulfillment starts.
type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetbanking PaymentMethod = "netbanking"
	PaymentMethodWallet     PaymentMethod = "wallet"
	PaymentMethodCOD        PaymentMethod = "cod"
)

var paymentMethods = newSet("payment method",
	PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetbanking, PaymentMethodWallet, PaymentMethodCOD)

func (p PaymentMethod) String() string { return string(p) }
func (p PaymentMethod) IsValid() bool  { return paymentMethods.has(p) }

// IsPrepaid reports whether payment is confirmed before the seller ships.
func (p PaymentMethod) IsPrepaid() bool {
	return p.IsValid() && p != PaymentMethodCOD
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse(value)
}
