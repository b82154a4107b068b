package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	ParticipantsRegistered prometheus.Counter
	RegistrationRejected   *prometheus.CounterVec
	RegisterDuration       prometheus.Histogram
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		ParticipantsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "croptrace_participants_registered_total",
			Help: "Total number of participants registered",
		}),
		RegistrationRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "croptrace_registrations_rejected_total",
			Help: "Total number of rejected registration attempts by cause",
		}, []string{"cause"}),
		RegisterDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "croptrace_register_duration_seconds",
			Help:    "Duration of register operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementRegistered records a successful registration.
func (m *Metrics) IncrementRegistered() {
	m.ParticipantsRegistered.Inc()
}

// IncrementRejected records a rejected registration attempt.
func (m *Metrics) IncrementRejected(cause string) {
	m.RegistrationRejected.WithLabelValues(cause).Inc()
}

// ObserveRegister records the duration of a register operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}
