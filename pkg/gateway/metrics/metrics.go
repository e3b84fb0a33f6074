package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Boundary metrics
	ClassificationsTotal  *prometheus.CounterVec
	TranscriptionsTotal   *prometheus.CounterVec
	UpstreamDuration      *prometheus.HistogramVec
	UpstreamThrottleTotal prometheus.Counter

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Rate limit metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered on a
// private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "livedeck"
	}

	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	classificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gesture_classifications_total",
			Help:      "Total gesture classification results by label",
		},
		[]string{"label", "outcome"},
	)

	transcriptionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Total audio transcription requests",
		},
		[]string{"outcome"},
	)

	upstreamDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Upstream model call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	upstreamThrottleTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_throttle_total",
			Help:      "Total rate-limit responses from the upstream model",
		},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"endpoint", "error_type"},
	)

	rateLimitHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of gateway rate limit hits",
		},
		[]string{"client"},
	)

	registry.MustRegister(
		requestsTotal,
		requestDuration,
		classificationsTotal,
		transcriptionsTotal,
		upstreamDuration,
		upstreamThrottleTotal,
		errorsTotal,
		rateLimitHits,
	)

	return &Metrics{
		registry:              registry,
		RequestsTotal:         requestsTotal,
		RequestDuration:       requestDuration,
		ClassificationsTotal:  classificationsTotal,
		TranscriptionsTotal:   transcriptionsTotal,
		UpstreamDuration:      upstreamDuration,
		UpstreamThrottleTotal: upstreamThrottleTotal,
		ErrorsTotal:           errorsTotal,
		RateLimitHits:         rateLimitHits,
	}
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(endpoint, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordClassification records a gesture classification result.
func (m *Metrics) RecordClassification(label, outcome string, duration time.Duration) {
	m.ClassificationsTotal.WithLabelValues(label, outcome).Inc()
	m.UpstreamDuration.WithLabelValues("classify").Observe(duration.Seconds())
}

// RecordTranscription records a transcription result.
func (m *Metrics) RecordTranscription(outcome string, duration time.Duration) {
	m.TranscriptionsTotal.WithLabelValues(outcome).Inc()
	m.UpstreamDuration.WithLabelValues("transcribe").Observe(duration.Seconds())
}

// RecordUpstreamThrottle records a 429 from the upstream model.
func (m *Metrics) RecordUpstreamThrottle() {
	m.UpstreamThrottleTotal.Inc()
}

// RecordError records an error by endpoint and canonical type.
func (m *Metrics) RecordError(endpoint, errorType string) {
	m.ErrorsTotal.WithLabelValues(endpoint, errorType).Inc()
}

// RecordRateLimitHit records a gateway rate limit hit.
func (m *Metrics) RecordRateLimitHit(client string) {
	m.RateLimitHits.WithLabelValues(client).Inc()
}
