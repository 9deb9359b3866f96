package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "motocare"

// Metrics holds every collector the booking process exports.
type Metrics struct {
	Operations          *prometheus.CounterVec
	ExpirySweeps        *prometheus.CounterVec
	ExpiredAppointments prometheus.Counter
}

// NewMetrics creates the collectors and registers them with registerer.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	metrics := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Booking service operations by name and outcome.",
		}, []string{"operation", "status"}),
		ExpirySweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "expiry_sweeps_total",
			Help:      "Stale request sweeps by outcome.",
		}, []string{"status"}),
		ExpiredAppointments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "expired_appointments_total",
			Help:      "Appointments moved to EXPIRED by the sweeper.",
		}),
	}
	registerer.MustRegister(metrics.Operations, metrics.ExpirySweeps, metrics.ExpiredAppointments)
	return metrics
}
