package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hirewatch/screening-engine/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	channelCallsTotal   *prometheus.CounterVec
	channelCallDuration *prometheus.HistogramVec
	verdictsTotal       *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "screening",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "screening",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "screening",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	channelCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "screening",
			Subsystem: "search",
			Name:      "channel_calls_total",
			Help:      "Total retrieval channel calls by channel and outcome.",
		},
		[]string{"service", "channel", "outcome"},
	)
	channelCallDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "screening",
			Subsystem: "search",
			Name:      "channel_call_duration_seconds",
			Help:      "Retrieval channel call duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "channel"},
	)
	verdictsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "screening",
			Subsystem: "search",
			Name:      "verdicts_total",
			Help:      "Total suspicion verdicts by level and retrieval mode.",
		},
		[]string{"service", "level", "mode"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		channelCallsTotal,
		channelCallDuration,
		verdictsTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		channelCallsTotal:   channelCallsTotal,
		channelCallDuration: channelCallDuration,
		verdictsTotal:       verdictsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasSuffix(path, "/similar"):
		return "/v1/documents/{document_id}/similar"
	case strings.HasPrefix(path, "/v1/documents/") && path != "/v1/documents/":
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// SearchObserver adapts the metrics registry to the search use case
// observer contract; one instance per service binary.
type SearchObserver struct {
	metrics *HTTPServerMetrics
	service string
}

func (m *HTTPServerMetrics) SearchObserver(service string) *SearchObserver {
	return &SearchObserver{metrics: m, service: service}
}

func (o *SearchObserver) ObserveChannelCall(channel domain.Channel, duration time.Duration, outcome string) {
	o.metrics.channelCallsTotal.WithLabelValues(o.service, string(channel), outcome).Inc()
	o.metrics.channelCallDuration.WithLabelValues(o.service, string(channel)).Observe(duration.Seconds())
}

func (o *SearchObserver) ObserveVerdict(level domain.SuspicionLevel, mode domain.SearchMode) {
	o.metrics.verdictsTotal.WithLabelValues(o.service, string(level), string(mode)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
