package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the notification module.
type Metrics struct {
	BroadcastsSent       prometheus.Counter
	RecipientsTargeted   prometheus.Counter
	AlertEventsPublished prometheus.Counter
}

// NewMetrics registers the notification metrics. Call once per process; unit
// tests pass a nil *Metrics instead.
func NewMetrics() *Metrics {
	return &Metrics{
		BroadcastsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "yatra_broadcasts_sent_total",
			Help: "Total number of broadcasts dispatched",
		}),
		RecipientsTargeted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "yatra_broadcast_recipients_total",
			Help: "Total number of recipients across all broadcasts",
		}),
		AlertEventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "yatra_alert_events_published_total",
			Help: "Total number of alert change events published to operator channels",
		}),
	}
}

// IncrementBroadcastsSent records one completed broadcast.
func (m *Metrics) IncrementBroadcastsSent() {
	m.BroadcastsSent.Inc()
}

// AddRecipientsTargeted records how many tourists a broadcast reached.
func (m *Metrics) AddRecipientsTargeted(n int) {
	m.RecipientsTargeted.Add(float64(n))
}

// IncrementAlertEventsPublished records one alert change fanned out.
func (m *Metrics) IncrementAlertEventsPublished() {
	m.AlertEventsPublished.Inc()
}
