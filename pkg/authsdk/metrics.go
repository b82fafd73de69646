package authsdk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes, used as the "outcome" label.
const (
	OutcomeSuccess         = "success"
	OutcomeFailure         = "failure"
	OutcomeTimeout         = "timeout"
	OutcomeNetwork         = "network"
	OutcomeInvalidResponse = "invalid_response"
)

// Refresh results, used as the "result" label.
const (
	RefreshSucceeded = "success"
	RefreshFailed    = "failure"
	RefreshThrottled = "throttled"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Refreshes *prometheus.CounterVec
	Duration  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_requests_total",
			Help: "HTTP exchanges issued by the client, by outcome",
		}, []string{"outcome"}),
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_refresh_total",
			Help: "Token refresh attempts, by result",
		}, []string{"result"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "authclient_request_duration_seconds",
			Help:    "Duration of HTTP exchanges issued by the client",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeRequest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
	m.Duration.Observe(d.Seconds())
}

func (m *Metrics) observeRefresh(result string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
}
