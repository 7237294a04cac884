package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeBusy     = "busy"
)

// Metrics holds the Prometheus collectors of the web front end. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	LoginAttempts *prometheus.CounterVec
	LoginDuration prometheus.Histogram

	registerer prometheus.Registerer
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	m := &Metrics{
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickvideo_login_attempts_total",
				Help: "Login form submissions by outcome",
			},
			[]string{"outcome"},
		),
		LoginDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quickvideo_login_duration_seconds",
				Help:    "Latency of backend login calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		registerer: registry,
	}
	for _, outcome := range []string{OutcomeSuccess, OutcomeInvalid, OutcomeRejected, OutcomeError, OutcomeBusy} {
		m.LoginAttempts.WithLabelValues(outcome)
	}
	return m
}

// NewRegistry creates a registry with the Go runtime and process collectors
// plus the front end metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, NewMetrics(reg)
}

// ObserveSessions exposes count as the authenticated sessions gauge.
func (m *Metrics) ObserveSessions(count func() int) {
	if m == nil || count == nil {
		return
	}
	promauto.With(m.registerer).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "quickvideo_sessions_authenticated",
			Help: "Live sessions currently holding a user",
		},
		func() float64 { return float64(count()) },
	)
}

// RecordLogin counts a submission outcome.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveLoginCall records the latency of one backend call.
func (m *Metrics) ObserveLoginCall(d time.Duration) {
	if m == nil {
		return
	}
	m.LoginDuration.Observe(d.Seconds())
}

// HandlerFor returns the /metrics handler for reg.
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
