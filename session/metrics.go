package session

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the lifecycle counters registered via WithMetrics.
type metrics struct {
	validations *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	logins      prometheus.Counter
	logouts     prometheus.Counter
}

const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
)

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_client_validations_total",
			Help: "Credential validations against the remote authority, by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_client_refreshes_total",
			Help: "Credential refresh attempts, by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_client_logins_total",
			Help: "Successful logins, including refreshes applied as logins.",
		}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_client_logouts_total",
			Help: "Transitions from an authenticated session to anonymous.",
		}),
	}
	reg.MustRegister(m.validations, m.refreshes, m.logins, m.logouts)
	return m
}

func (m *metrics) validation(ok bool) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(outcome(ok)).Inc()
}

func (m *metrics) refresh(ok bool) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome(ok)).Inc()
}

func (m *metrics) login() {
	if m == nil {
		return
	}
	m.logins.Inc()
}

func (m *metrics) logout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}

func outcome(ok bool) string {
	if ok {
		return outcomeOK
	}
	return outcomeFailed
}
