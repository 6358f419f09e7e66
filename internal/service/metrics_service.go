package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the secret
// lifecycle and the HTTP surface.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	secretsCreated  *prometheus.CounterVec
	redeemOutcomes  *prometheus.CounterVec
	purgesTotal     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	secretsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "secrets_created_total",
		Help: "Total secrets created",
	}, []string{"password_protected", "extendable"})

	redeemOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "secret_redeem_outcomes_total",
		Help: "Redemption attempts by gating outcome",
	}, []string{"outcome"})

	purgesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "secret_purges_total",
		Help: "Expired secrets purged, by trigger",
	}, []string{"trigger"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, secretsCreated, redeemOutcomes, purgesTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		secretsCreated:  secretsCreated,
		redeemOutcomes:  redeemOutcomes,
		purgesTotal:     purgesTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

// ObserveSecretCreated counts a successful creation.
func (m *MetricsService) ObserveSecretCreated(passwordProtected, extendable bool) {
	if m == nil {
		return
	}
	m.secretsCreated.With(prometheus.Labels{
		"password_protected": strconv.FormatBool(passwordProtected),
		"extendable":         strconv.FormatBool(extendable),
	}).Inc()
}

// ObserveRedeem counts a redemption attempt by gating outcome.
func (m *MetricsService) ObserveRedeem(outcome string) {
	if m == nil {
		return
	}
	m.redeemOutcomes.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// ObservePurge counts an expired-secret purge by trigger.
func (m *MetricsService) ObservePurge(trigger string) {
	if m == nil {
		return
	}
	m.purgesTotal.With(prometheus.Labels{"trigger": trigger}).Inc()
}
