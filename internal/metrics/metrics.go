package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	captured       *prometheus.CounterVec
	bodyBytes      prometheus.Histogram
	decodeFailures *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		captured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "returnall_requests_captured_total",
			Help: "Number of requests captured and echoed back",
		}, []string{"route", "valid_json"}),
		bodyBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "returnall_request_body_bytes",
			Help:    "Size of captured request bodies after decompression",
			Buckets: prometheus.ExponentialBuckets(16, 4, 10),
		}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "returnall_body_decode_failures_total",
			Help: "Request bodies whose Content-Encoding could not be undone",
		}, []string{"encoding"}),
	}
	reg.MustRegister(
		m.captured,
		m.bodyBytes,
		m.decodeFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCapture counts one captured request.
func (m *Metrics) ObserveCapture(route string, validJSON bool, bodySize int) {
	if m == nil {
		return
	}
	m.captured.WithLabelValues(route, strconv.FormatBool(validJSON)).Inc()
	m.bodyBytes.Observe(float64(bodySize))
}

func (m *Metrics) ObserveDecodeFailure(encoding string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(encoding).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
