// Package metrics holds the Prometheus collectors for vendor exchanges and
// the HTTP front door.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"llm-bridge/internal/models"
)

// Exchange outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeClientError  = "client_error"
	OutcomeServerError  = "server_error"
	OutcomeRequestError = "request_error"
	OutcomeParseError   = "parse_error"
)

// LLMBuckets spans typical chat completion latencies, from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// ExchangesTotal counts vendor round trips by outcome.
	ExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_bridge_exchanges_total",
			Help: "Vendor exchanges",
		},
		[]string{"provider", "vendor", "outcome"},
	)

	// ExchangeDuration records vendor round trip latency in seconds.
	ExchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_bridge_exchange_duration_seconds",
			Help:    "Vendor exchange duration",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "vendor"},
	)

	// TokensTotal counts tokens reported by vendors, by direction (input/output).
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_bridge_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "direction"},
	)

	// HTTPRequestsTotal counts front door requests by method, route and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_bridge_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		ExchangesTotal,
		ExchangeDuration,
		TokensTotal,
		HTTPRequestsTotal,
	)
}

// ObserveExchange records one finished vendor round trip.
func ObserveExchange(provider string, vendor models.Vendor, outcome string, elapsed time.Duration) {
	ExchangesTotal.WithLabelValues(provider, string(vendor), outcome).Inc()
	ExchangeDuration.WithLabelValues(provider, string(vendor)).Observe(elapsed.Seconds())
}

// AddTokens accumulates the usage reported by a successful exchange.
func AddTokens(provider string, usage models.Usage) {
	if usage.InputTokens > 0 {
		TokensTotal.WithLabelValues(provider, "input").Add(float64(usage.InputTokens))
	}
	if usage.OutputTokens > 0 {
		TokensTotal.WithLabelValues(provider, "output").Add(float64(usage.OutputTokens))
	}
}

// StatusClass buckets an HTTP status code as 2xx, 4xx and so on.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
