package enums

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateBargain     OutboxAggregateType = "bargain"
	AggregateOrder       OutboxAggregateType = "order"
	AggregateTransaction OutboxAggregateType = "transaction"
)

var aggregateTypes = newSet("aggregate type", AggregateBargain, AggregateOrder, AggregateTransaction)

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse(value)
}

// OutboxEventType is the event_type column of outbox_events and doubles as
// the routing key on the broker.
type OutboxEventType string

const (
	EventBargainProposed       OutboxEventType = "bargain.proposed"
	EventBargainCountered      OutboxEventType = "bargain.countered"
	EventBargainAccepted       OutboxEventType = "bargain.accepted"
	EventBargainRejected       OutboxEventType = "bargain.rejected"
	EventBargainExpired        OutboxEventType = "bargain.expired"
	EventOrderPlaced           OutboxEventType = "order.placed"
	EventOrderStatusChanged    OutboxEventType = "order.status_changed"
	EventOrderCancelled        OutboxEventType = "order.cancelled"
	EventOrderPaid             OutboxEventType = "order.paid"
	EventSettlementTransferred OutboxEventType = "settlement.transferred"
	EventSettlementFailed      OutboxEventType = "settlement.failed"
)

var outboxEventTypes = newSet("event type",
	EventBargainProposed,
	EventBargainCountered,
	EventBargainAccepted,
	EventBargainRejected,
	EventBargainExpired,
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventOrderPaid,
	EventSettlementTransferred,
	EventSettlementFailed,
)

func (e OutboxEventType) IsValid() bool { return outboxEventTypes.has(e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return outboxEventTypes.parse(value)
}

// OutboxDLQErrorReason records why an outbox row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonUnroutable   OutboxDLQErrorReason = "unroutable"
)

var dlqReasons = newSet("dead letter reason",
	OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUnroutable)

func (r OutboxDLQErrorReason) IsValid() bool { return dlqReasons.has(r) }
