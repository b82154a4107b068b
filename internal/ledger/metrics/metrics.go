package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the custody ledger module.
type Metrics struct {
	UnitsMinted       prometheus.Counter
	UnitsTransferred  prometheus.Counter
	RejectedMutations *prometheus.CounterVec
	TransferDuration  prometheus.Histogram
	AuthChecks        *prometheus.CounterVec
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		UnitsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "croptrace_units_minted_total",
			Help: "Total number of units minted",
		}),
		UnitsTransferred: promauto.NewCounter(prometheus.CounterOpts{
			Name: "croptrace_units_transferred_total",
			Help: "Total number of completed ownership transfers",
		}),
		RejectedMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "croptrace_ledger_rejections_total",
			Help: "Total number of rejected ledger mutations by cause",
		}, []string{"operation", "cause"}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "croptrace_transfer_duration_seconds",
			Help:    "Duration of transfer operations (custody critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		AuthChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "croptrace_authenticate_checks_total",
			Help: "Total number of authenticate checks by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementMinted records a successful mint.
func (m *Metrics) IncrementMinted() { m.UnitsMinted.Inc() }

// IncrementTransferred records a successful transfer.
func (m *Metrics) IncrementTransferred() { m.UnitsTransferred.Inc() }

// IncrementRejected records a rejected mutation.
func (m *Metrics) IncrementRejected(operation, cause string) {
	m.RejectedMutations.WithLabelValues(operation, cause).Inc()
}

// ObserveTransfer records the duration of a transfer operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransfer(start time.Time) {
	m.TransferDuration.Observe(time.Since(start).Seconds())
}

// IncrementAuthCheck records an authenticate outcome ("authentic",
// "not_owner", or "unit_not_found").
func (m *Metrics) IncrementAuthCheck(outcome string) {
	m.AuthChecks.WithLabelValues(outcome).Inc()
}
