package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the alert lifecycle module.
type Metrics struct {
	Opened      *prometheus.CounterVec
	Transitions *prometheus.CounterVec
}

// New registers the alert metrics. Call once per process; unit tests pass a
// nil *Metrics to the service instead.
func New() *Metrics {
	return &Metrics{
		Opened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "yatra_alerts_opened_total",
			Help: "Total number of alerts opened, by type",
		}, []string{"type"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "yatra_alert_transitions_total",
			Help: "Total number of alert state transitions, by action",
		}, []string{"action"}),
	}
}

// IncrementOpened records a newly opened alert.
func (m *Metrics) IncrementOpened(alertType string) {
	m.Opened.WithLabelValues(alertType).Inc()
}

// IncrementTransition records one lifecycle transition.
func (m *Metrics) IncrementTransition(action string) {
	m.Transitions.WithLabelValues(action).Inc()
}
