package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FailedLogins  prometheus.Counter
	AlertsSent    *prometheus.CounterVec
	FrictionDelay prometheus.Histogram
}

// New registers the authentication defense metrics against the given
// registerer. Tests pass a fresh prometheus.NewRegistry to avoid duplicate
// registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FailedLogins: factory.NewCounter(prometheus.CounterOpts{
			Name: "bastion_failed_logins_total",
			Help: "Total number of failed login attempts recorded",
		}),
		AlertsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bastion_alerts_sent_total",
			Help: "Total number of security alerts dispatched, by category",
		}, []string{"category"}),
		FrictionDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bastion_friction_delay_seconds",
			Help:    "Computed login friction delay",
			Buckets: []float64{0, 1, 2, 4, 8, 13, 18, 28},
		}),
	}
}

func (m *Metrics) IncrementFailedLogins() {
	m.FailedLogins.Inc()
}

func (m *Metrics) IncrementAlertsSent(category string) {
	m.AlertsSent.WithLabelValues(category).Inc()
}

func (m *Metrics) ObserveFrictionDelay(d time.Duration) {
	m.FrictionDelay.Observe(d.Seconds())
}
