// Package metrics collects Prometheus metrics for outbound requests, the
// request dispatcher and departure refreshes, and serves them over HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/five82/transitboard/internal/dispatch"
)

// Collector records transitboard metrics into a registry.
type Collector struct {
	requests       *prometheus.CounterVec
	requestLatency prometheus.Histogram
	retries        prometheus.Counter
	queued         prometheus.Gauge
	inFlight       prometheus.Gauge
	refreshes      *prometheus.CounterVec
	refreshLatency prometheus.Histogram
	lastRefresh    prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitboard_requests_total",
			Help: "Journey planner requests by HTTP status (0 for transport errors).",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transitboard_request_latency_seconds",
			Help:    "Journey planner request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitboard_request_retries_total",
			Help: "Failed request attempts that were scheduled for another try.",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitboard_dispatch_queued",
			Help: "Requests waiting for a dispatcher slot.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitboard_dispatch_in_flight",
			Help: "Requests currently running in the dispatcher.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitboard_refreshes_total",
			Help: "Departure refreshes by outcome.",
		}, []string{"outcome"}),
		refreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transitboard_refresh_duration_seconds",
			Help:    "Time from refresh start to render, including retries.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitboard_last_refresh_timestamp_seconds",
			Help: "Unix time of the last refresh pass.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.retries,
		c.queued,
		c.inFlight,
		c.refreshes,
		c.refreshLatency,
		c.lastRefresh,
	)

	return c
}

// RecordRequest records one HTTP attempt. Its signature matches
// entur.WithRequestObserver.
func (c *Collector) RecordRequest(status int, elapsed time.Duration, _ error) {
	c.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	c.requestLatency.Observe(elapsed.Seconds())
}

// RecordRetry records a failed attempt that will be retried. Its signature
// matches retry.WithOnRetry.
func (c *Collector) RecordRetry(_ int, _ time.Duration, _ error) {
	c.retries.Inc()
}

// RecordDispatch records the dispatcher queue. Its signature matches
// dispatch.WithObserver.
func (c *Collector) RecordDispatch(s dispatch.Stats) {
	c.queued.Set(float64(s.Queued))
	c.inFlight.Set(float64(s.InFlight))
}

// RecordRefresh records a finished departure refresh.
func (c *Collector) RecordRefresh(outcome string, elapsed time.Duration) {
	c.refreshes.WithLabelValues(outcome).Inc()
	c.refreshLatency.Observe(elapsed.Seconds())
}

// RecordRefreshPass records the time of a timer-driven refresh pass.
func (c *Collector) RecordRefreshPass(t time.Time) {
	c.lastRefresh.Set(float64(t.Unix()))
}

// Handler returns an HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute returns a mux serving /metrics.
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
