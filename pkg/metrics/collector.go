package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentcoach/billing/pkg/billing"
	"github.com/agentcoach/billing/pkg/webhook"
)

type Config struct {
	Namespace      string `env:"METRICS_NAMESPACE" envDefault:"billing"`
	RuntimeMetrics bool   `env:"METRICS_RUNTIME" envDefault:"true"` // RuntimeMetrics adds Go and process collectors.
}

// Collector owns a private registry with the service's metrics. It
// implements billing.Observer.
type Collector struct {
	registry *prometheus.Registry

	eventsTotal        *prometheus.CounterVec
	eventDuration      *prometheus.HistogramVec
	signatureRejected  prometheus.Counter
	identityFailures   *prometheus.CounterVec
	recordsSuperseded  prometheus.Counter
	identityAttempts   *prometheus.CounterVec
	httpRequestsTotal  *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

// New registers all metrics on a fresh registry.
func New(cfg Config) *Collector {
	ns := cfg.Namespace
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "webhook_events_total",
			Help:      "Processor webhook events by type and outcome.",
		}, []string{"event_type", "outcome"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "webhook_event_duration_seconds",
			Help:      "Time spent reconciling a webhook event.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"event_type"}),
		signatureRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "webhook_signature_rejected_total",
			Help:      "Webhook deliveries rejected because of a bad signature.",
		}),
		identityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "identity_sync_failures_total",
			Help:      "Failed identity pushes by triggering event type.",
		}, []string{"event_type"}),
		recordsSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "records_superseded_total",
			Help:      "Subscription records replaced by a newer subscription for the same email.",
		}),
		identityAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "identity_sync_attempts_total",
			Help:      "Identity sync HTTP attempts by result.",
		}, []string{"result"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		c.eventsTotal,
		c.eventDuration,
		c.signatureRejected,
		c.identityFailures,
		c.recordsSuperseded,
		c.identityAttempts,
		c.httpRequestsTotal,
		c.httpRequestLatency,
	)
	if cfg.RuntimeMetrics {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) EventReconciled(eventType string, outcome billing.Outcome, elapsed time.Duration) {
	c.eventsTotal.WithLabelValues(eventType, string(outcome)).Inc()
	c.eventDuration.WithLabelValues(eventType).Observe(elapsed.Seconds())
}

func (c *Collector) SignatureRejected() {
	c.signatureRejected.Inc()
}

func (c *Collector) IdentitySyncFailed(eventType string) {
	c.identityFailures.WithLabelValues(eventType).Inc()
}

func (c *Collector) RecordSuperseded() {
	c.recordsSuperseded.Inc()
}

// ObserveIdentityAttempt counts one HTTP attempt of the identity sender.
// It matches the webhook.WithOnAttempt callback signature.
func (c *Collector) ObserveIdentityAttempt(a webhook.Attempt) {
	result := "success"
	switch {
	case a.Err == nil:
	case a.StatusCode == 0:
		result = "network_error"
	default:
		result = strconv.Itoa(a.StatusCode)
	}
	c.identityAttempts.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency labelled by the chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		c.httpRequestLatency.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

var _ billing.Observer = (*Collector)(nil)
