package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginNotActivated       = "not_activated"
)

// First-time token events.
const (
	TokenIssued   = "issued"
	TokenConsumed = "consumed"
	TokenRevoked  = "revoked"
	TokenRejected = "rejected"
)

// Metrics holds the application counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	LoginAttemptsTotal   *prometheus.CounterVec
	FirstTimeTokensTotal *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensetracker_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		FirstTimeTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensetracker_first_time_tokens_total",
				Help: "First-time login token lifecycle events",
			},
			[]string{"event"},
		),
	}

	registry.MustRegister(
		m.LoginAttemptsTotal,
		m.FirstTimeTokensTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// LoginAttempt counts one login by outcome.
func (m *Metrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// TokenEvent counts n first-time token events.
func (m *Metrics) TokenEvent(event string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FirstTimeTokensTotal.WithLabelValues(event).Add(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
