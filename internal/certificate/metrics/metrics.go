package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Issued        prometheus.Counter
	Revoked       prometheus.Counter
	Verified      *prometheus.CounterVec
	IssueDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_certificates_issued_total",
			Help: "Total number of certificates issued",
		}),
		Revoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_certificates_revoked_total",
			Help: "Total number of certificates revoked",
		}),
		Verified: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certis_certificates_verified_total",
			Help: "Public verification lookups by outcome",
		}, []string{"outcome"}),
		IssueDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certis_certificate_issue_duration_seconds",
			Help:    "Duration of certificate issuance",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementIssued() {
	if m == nil {
		return
	}
	m.Issued.Inc()
}

func (m *Metrics) IncrementRevoked() {
	if m == nil {
		return
	}
	m.Revoked.Inc()
}

func (m *Metrics) IncrementVerified(outcome string) {
	if m == nil {
		return
	}
	m.Verified.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveIssue(start time.Time) {
	if m == nil {
		return
	}
	m.IssueDuration.Observe(time.Since(start).Seconds())
}
