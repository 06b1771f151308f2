package safety

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the safety-state module.
type Metrics struct {
	LocationUpdates prometheus.Counter
	FenceBreaches   *prometheus.CounterVec
	DistressSignals prometheus.Counter
}

// NewMetrics registers the safety metrics. Call once per process; unit tests
// pass a nil *Metrics to the service instead.
func NewMetrics() *Metrics {
	return &Metrics{
		LocationUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "yatra_location_updates_total",
			Help: "Total number of accepted tourist location reports",
		}),
		FenceBreaches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "yatra_fence_breaches_total",
			Help: "Total number of location reports inside a high-risk fence, by risk level",
		}, []string{"risk_level"}),
		DistressSignals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "yatra_distress_signals_total",
			Help: "Total number of distress signals received",
		}),
	}
}

// IncrementLocationUpdates records one accepted location report.
func (m *Metrics) IncrementLocationUpdates() {
	m.LocationUpdates.Inc()
}

// IncrementFenceBreaches records a report inside a high-risk fence.
func (m *Metrics) IncrementFenceBreaches(riskLevel string) {
	m.FenceBreaches.WithLabelValues(riskLevel).Inc()
}

// IncrementDistressSignals records one distress signal.
func (m *Metrics) IncrementDistressSignals() {
	m.DistressSignals.Inc()
}
