package enums

// BargainStatus maps to the bargain_status enum in Postgres.
type BargainStatus string

const (
	BargainStatusPending   BargainStatus = "pending"
	BargainStatusCountered BargainStatus = "countered"
	BargainStatusAccepted  BargainStatus = "accepted"
	BargainStatusRejected  BargainStatus = "rejected"
	BargainStatusExpired   BargainStatus = "expired"
)

var bargainStatuses = newSet("bargain status",
	BargainStatusPending, BargainStatusCountered, BargainStatusAccepted, BargainStatusRejected, BargainStatusExpired)

// ActiveBargainStatuses still accept responses.
var ActiveBargainStatuses = []BargainStatus{BargainStatusPending, BargainStatusCountered}

// a countered bargain may be countered again, up to the configured cap
var bargainFlow = graph[BargainStatus]{
	BargainStatusPending:   {BargainStatusCountered, BargainStatusAccepted, BargainStatusRejected, BargainStatusExpired},
	BargainStatusCountered: {BargainStatusCountered, BargainStatusAccepted, BargainStatusRejected, BargainStatusExpired},
}

func (s BargainStatus) String() string { return string(s) }
func (s BargainStatus) IsValid() bool  { return bargainStatuses.has(s) }

func (s BargainStatus) IsActive() bool {
	return s == BargainStatusPending || s == BargainStatusCountered
}

func (s BargainStatus) IsTerminal() bool {
	return s.IsValid() && bargainFlow.isSink(s)
}

func (s BargainStatus) CanTransitionTo(next BargainStatus) bool {
	return bargainFlow.allows(s, next)
}

func ParseBargainStatus(value string) (BargainStatus, error) {
	return bargainStatuses.parse(value)
}

// BargainAction is the response a party submits on an open bargain.
type BargainAction string

const (
	BargainActionAccept  BargainAction = "accept"
	BargainActionReject  BargainAction = "reject"
	BargainActionCounter BargainAction = "counter"
)

var bargainActions = newSet("bargain action", BargainActionAccept, BargainActionReject, BargainActionCounter)

func ParseBargainAction(value string) (BargainAction, error) {
	return bargainActions.parse(value)
}

// BargainSender identifies who posted a message on a bargain thread.
type BargainSender string

const (
	BargainSenderBuyer  BargainSender = "buyer"
	BargainSenderSeller BargainSender = "seller"
)

var bargainSenders = newSet("bargain sender", BargainSenderBuyer, BargainSenderSeller)

func (s BargainSender) IsValid() bool { return bargainSenders.has(s) }
