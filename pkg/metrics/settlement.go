package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Settlement outcomes recorded per processed transaction.
const (
	OutcomeTransferred = "transferred"
	OutcomeRetry       = "retry"
	OutcomeFailed      = "failed"
	OutcomeUnrecorded  = "unrecorded"
)

// SettlementMetrics tracks the payout sweep.
type SettlementMetrics struct {
	transfers *prometheus.CounterVec
	amount    *prometheus.CounterVec
	held      prometheus.Gauge
}

// NewSettlementMetrics registers the settlement metrics on reg.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_transfers_total",
		Help:      "Settlement transfer attempts by outcome.",
	}, []string{"outcome"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_transferred_amount_total",
		Help:      "Net amount released to sellers.",
	}, []string{"currency"})
	held := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "settlement_due_transactions",
		Help:      "Held transactions past the hold window at the start of the last sweep.",
	})
	reg.MustRegister(transfers, amount, held)
	return &SettlementMetrics{transfers: transfers, amount: amount, held: held}
}

// Observe counts one processed transaction.
func (s *SettlementMetrics) Observe(outcome string) {
	if s == nil || s.transfers == nil {
		return
	}
	s.transfers.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddTransferred adds a released net amount.
func (s *SettlementMetrics) AddTransferred(currency string, amount decimal.Decimal) {
	if s == nil || s.amount == nil {
		return
	}
	s.amount.WithLabelValues(normalizeLabel(currency)).Add(amount.InexactFloat64())
}

// SetDue records the size of the due batch.
func (s *SettlementMetrics) SetDue(n int) {
	if s == nil || s.held == nil {
		return
	}
	s.held.Set(float64(n))
}
