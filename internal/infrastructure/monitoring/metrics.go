package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/clusterintranet/authgate/pkg/constants"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	TokensIssued     *prometheus.CounterVec
	TokenValidations *prometheus.CounterVec
	TokenRevocations prometheus.Counter
	RateLimitChecks  *prometheus.CounterVec
	RequestLatency   *prometheus.HistogramVec
}

// NewMetrics creates the Prometheus metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh registry
// so parallel packages do not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_tokens_issued_total",
				Help: "Total number of tokens issued.",
			},
			[]string{"type"},
		),
		TokenValidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_token_validations_total",
				Help: "Total number of token validations by outcome.",
			},
			[]string{"result"},
		),
		TokenRevocations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "authgate_token_revocations_total",
				Help: "Total number of token revocations.",
			},
		),
		RateLimitChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_rate_limit_checks_total",
				Help: "Total number of rate limit checks by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authgate_request_latency_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

// RecordTokenIssued records a token issue event.
func (m *Metrics) RecordTokenIssued(tokenType constants.TokenType) {
	m.TokensIssued.WithLabelValues(string(tokenType)).Inc()
}

// RecordTokenValidation records a token validation outcome. The label is
// "valid" for successful validations and the failure reason otherwise.
func (m *Metrics) RecordTokenValidation(result string) {
	m.TokenValidations.WithLabelValues(result).Inc()
}

// RecordTokenRevocation records a token revocation event.
func (m *Metrics) RecordTokenRevocation() {
	m.TokenRevocations.Inc()
}

// RecordRateLimitCheck records a rate limit decision for an action.
func (m *Metrics) RecordRateLimitCheck(action string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.RateLimitChecks.WithLabelValues(action, outcome).Inc()
}

// RecordRequest records latency for a completed HTTP request.
func (m *Metrics) RecordRequest(method, path, status string, duration time.Duration) {
	m.RequestLatency.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
