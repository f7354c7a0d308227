package prometheus

import (
	"strconv"
	"time"

	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	updates         *prometheus.CounterVec
	updateDelta     *prometheus.CounterVec
	counterValue    *prometheus.GaugeVec
	storeErrors     *prometheus.CounterVec
	invalidRequests *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
	storeUp         prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector registered on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		updates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layoutcounter_updates_total",
				Help: "Total number of applied counter updates",
			},
			[]string{"key", "strategy"},
		),
		updateDelta: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layoutcounter_update_delta_abs_total",
				Help: "Sum of absolute deltas applied per counter",
			},
			[]string{"key"},
		),
		counterValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "layoutcounter_counter_value",
				Help: "Last observed value of each counter",
			},
			[]string{"key"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layoutcounter_store_errors_total",
				Help: "Total number of counter store failures",
			},
			[]string{"kind"},
		),
		invalidRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layoutcounter_invalid_requests_total",
				Help: "Total number of rejected update requests",
			},
			[]string{"kind"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layoutcounter_events_published_total",
				Help: "Total number of counter events published",
			},
			[]string{"status"},
		),
		storeUp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "layoutcounter_store_up",
				Help: "1 when the last store health check succeeded",
			},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "layoutcounter_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"route", "status"},
		),
	}
}

// RecordUpdate records an applied update
func (c *Collector) RecordUpdate(key domain.Key, strategy string, delta int64) {
	c.updates.WithLabelValues(string(key), strategy).Inc()
	c.updateDelta.WithLabelValues(string(key)).Add(float64(absDelta(delta)))
}

// absDelta is |delta| as uint64, which also holds |math.MinInt64|
func absDelta(delta int64) uint64 {
	if delta < 0 {
		return uint64(-(delta + 1)) + 1
	}
	return uint64(delta)
}

// SetCounterValues mirrors the counter set into gauges
func (c *Collector) SetCounterValues(counters domain.Counters) {
	for _, k := range domain.Keys() {
		c.counterValue.WithLabelValues(string(k)).Set(float64(counters.Get(k)))
	}
}

// RecordStoreError counts a store failure by kind
func (c *Collector) RecordStoreError(kind domain.ErrorKind) {
	c.storeErrors.WithLabelValues(kind.String()).Inc()
}

// RecordInvalidRequest counts a rejected request by kind
func (c *Collector) RecordInvalidRequest(kind domain.ErrorKind) {
	c.invalidRequests.WithLabelValues(kind.String()).Inc()
}

// RecordEventPublished counts event publication outcomes
func (c *Collector) RecordEventPublished(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	c.eventsPublished.WithLabelValues(status).Inc()
}

// SetStoreUp records the store health
func (c *Collector) SetStoreUp(up bool) {
	if up {
		c.storeUp.Set(1)
		return
	}
	c.storeUp.Set(0)
}

// ObserveRequest records an HTTP request duration
func (c *Collector) ObserveRequest(route string, status int, duration time.Duration) {
	c.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(duration.Seconds())
}
