package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cypherx/pairgate/pkg/session"
)

// sessionMetrics is the Prometheus implementation of session.Metrics.
type sessionMetrics struct {
	started     prometheus.Counter
	codesIssued prometheus.Counter
	provisioned *prometheus.CounterVec
	reconnects  prometheus.Counter
	failures    *prometheus.CounterVec
}

// NewSessionMetrics creates a Prometheus-backed session.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). The
// session package treats a nil Metrics as a no-op.
func NewSessionMetrics() session.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &sessionMetrics{
		started: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "pairgate_sessions_started_total",
			Help: "Total number of provisioning requests accepted",
		}),
		codesIssued: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "pairgate_pairing_codes_issued_total",
			Help: "Total number of pairing codes returned to callers",
		}),
		provisioned: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairgate_sessions_provisioned_total",
				Help: "Total number of session tokens delivered, by encoding scheme",
			},
			[]string{"scheme"},
		),
		reconnects: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "pairgate_reconnect_attempts_total",
			Help: "Total number of reconnect attempts after transient closes",
		}),
		failures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairgate_provisioning_failures_total",
				Help: "Total number of provisioning failures, by reason",
			},
			[]string{"reason"},
		),
	}
}

func (m *sessionMetrics) SessionStarted() {
	m.started.Inc()
}

func (m *sessionMetrics) PairingCodeIssued() {
	m.codesIssued.Inc()
}

func (m *sessionMetrics) SessionProvisioned(scheme session.Scheme) {
	m.provisioned.WithLabelValues(string(scheme)).Inc()
}

func (m *sessionMetrics) ReconnectAttempted() {
	m.reconnects.Inc()
}

func (m *sessionMetrics) ProvisioningFailed(reason string) {
	m.failures.WithLabelValues(reason).Inc()
}
