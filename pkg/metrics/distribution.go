package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DistributionMetrics records ledger activity for operational dashboards.
type DistributionMetrics struct {
	deposits        *prometheus.CounterVec
	depositedUnits  *prometheus.CounterVec
	claims          *prometheus.CounterVec
	claimedUnits    *prometheus.CounterVec
	roundsFinalized *prometheus.CounterVec
	roundsClosed    *prometheus.CounterVec
	claimLatency    *prometheus.HistogramVec
}

// NewDistributionMetrics registers the ledger metrics on the provided registerer.
func NewDistributionMetrics(reg prometheus.Registerer) *DistributionMetrics {
	if reg == nil {
		return &DistributionMetrics{}
	}
	deposits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distribution_deposits_total",
		Help: "Accepted rental income deposits.",
	}, []string{"property"})
	depositedUnits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distribution_deposited_units_total",
		Help: "Deposited settlement units by property.",
	}, []string{"property"})
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distribution_claims_total",
		Help: "Successful holder claims.",
	}, []string{"property"})
	claimedUnits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distribution_claimed_units_total",
		Help: "Settlement units paid out to holders.",
	}, []string{"property"})
	roundsFinalized := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distribution_rounds_finalized_total",
		Help: "Rounds locked for claiming.",
	}, []string{"property"})
	roundsClosed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distribution_rounds_closed_total",
		Help: "Rounds swept back to treasury.",
	}, []string{"property"})
	claimLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "distribution_claim_duration_seconds",
		Help:    "Duration of claim processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"property"})
	reg.MustRegister(deposits, depositedUnits, claims, claimedUnits, roundsFinalized, roundsClosed, claimLatency)
	return &DistributionMetrics{
		deposits:        deposits,
		depositedUnits:  depositedUnits,
		claims:          claims,
		claimedUnits:    claimedUnits,
		roundsFinalized: roundsFinalized,
		roundsClosed:    roundsClosed,
		claimLatency:    claimLatency,
	}
}

// ObserveDeposit records an accepted deposit and its amount.
func (m *DistributionMetrics) ObserveDeposit(property string, amountUnits int64) {
	if m == nil || m.deposits == nil {
		return
	}
	label := normalizeLabel(property)
	m.deposits.WithLabelValues(label).Inc()
	m.depositedUnits.WithLabelValues(label).Add(float64(amountUnits))
}

// ObserveClaim records a paid claim, its amount, and processing duration.
func (m *DistributionMetrics) ObserveClaim(property string, amountUnits int64, duration time.Duration) {
	if m == nil || m.claims == nil {
		return
	}
	label := normalizeLabel(property)
	m.claims.WithLabelValues(label).Inc()
	m.claimedUnits.WithLabelValues(label).Add(float64(amountUnits))
	m.claimLatency.WithLabelValues(label).Observe(duration.Seconds())
}

// IncRoundFinalized increments the finalized round counter.
func (m *DistributionMetrics) IncRoundFinalized(property string) {
	if m == nil || m.roundsFinalized == nil {
		return
	}
	m.roundsFinalized.WithLabelValues(normalizeLabel(property)).Inc()
}

// IncRoundClosed increments the closed round counter.
func (m *DistributionMetrics) IncRoundClosed(property string) {
	if m == nil || m.roundsClosed == nil {
		return
	}
	m.roundsClosed.WithLabelValues(normalizeLabel(property)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
