package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LoginSuccess    *prometheus.CounterVec
	LoginFailure    prometheus.Counter
	TokensValidated prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		LoginSuccess: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certis_logins_total",
			Help: "Successful logins by role",
		}, []string{"role"}),
		LoginFailure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_login_failures_total",
			Help: "Failed login attempts",
		}),
		TokensValidated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_tokens_validated_total",
			Help: "Bearer tokens validated successfully",
		}),
	}
}

func (m *Metrics) IncrementLoginSuccess(role string) {
	if m == nil {
		return
	}
	m.LoginSuccess.WithLabelValues(role).Inc()
}

func (m *Metrics) IncrementLoginFailure() {
	if m == nil {
		return
	}
	m.LoginFailure.Inc()
}

func (m *Metrics) IncrementTokenValidated() {
	if m == nil {
		return
	}
	m.TokensValidated.Inc()
}
