package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity ledger.
type Metrics struct {
	IdentitiesIssued prometheus.Counter
}

// NewMetrics registers the ledger metrics. Call once per process; unit tests
// pass a nil *Metrics to the service instead.
func NewMetrics() *Metrics {
	return &Metrics{
		IdentitiesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "yatra_identities_issued_total",
			Help: "Total number of digital identities minted",
		}),
	}
}

// IncrementIssued records a successful issuance.
func (m *Metrics) IncrementIssued() {
	m.IdentitiesIssued.Inc()
}
