package enums

// TransactionStatus tracks a seller payout from hold to release.
type TransactionStatus string

const (
	TransactionStatusHeld        TransactionStatus = "held"
	TransactionStatusProcessing  TransactionStatus = "processing"
	TransactionStatusTransferred TransactionStatus = "transferred"
	TransactionStatusFailed      TransactionStatus = "failed"
	TransactionStatusCancelled   TransactionStatus = "cancelled"
)

var transactionStatuses = newSet("transaction status",
	TransactionStatusHeld, TransactionStatusProcessing, TransactionStatusTransferred,
	TransactionStatusFailed, TransactionStatusCancelled)

func (s TransactionStatus) String() string { return string(s) }
func (s TransactionStatus) IsValid() bool  { return transactionStatuses.has(s) }

func ParseTransactionStatus(value string) (TransactionStatus, error) {
	return transactionStatuses.parse(value)
}
