// Package metrics exposes Prometheus collectors for the store, the reminder
// service and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "subtrack"

// Metrics owns its registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	mutations       *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	subscriptions   *prometheus.GaugeVec
	monthlyTotal    prometheus.Gauge

	remindersPublished *prometheus.CounterVec
	reminderScans      *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Store mutations by operation and persistence result.",
		}, []string{"operation", "result"}),
		persistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_failures_total",
			Help:      "Snapshot saves that failed, by operation.",
		}, []string{"operation"}),
		subscriptions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "subscriptions",
			Help:      "Subscriptions in the collection by status.",
		}, []string{"status"}),
		monthlyTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "monthly_expense",
			Help:      "Sum of monthly-normalised prices of active subscriptions.",
		}),
		remindersPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "published_total",
			Help:      "Renewal reminders published by urgency.",
		}, []string{"urgency"}),
		reminderScans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "scans_total",
			Help:      "Reminder scans by result.",
		}, []string{"result"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled by the API.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration observed at the API layer.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveMutation counts a store mutation. A non-nil err means the save
// failed; the in-memory change was still applied.
func (m *Metrics) ObserveMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "persist_failed"
		m.persistFailures.WithLabelValues(op).Inc()
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

// ObserveCollection records the collection size and monthly total.
func (m *Metrics) ObserveCollection(total, active int, monthly float64) {
	m.subscriptions.WithLabelValues("active").Set(float64(active))
	m.subscriptions.WithLabelValues("inactive").Set(float64(total - active))
	m.monthlyTotal.Set(monthly)
}

func (m *Metrics) ObserveReminder(urgency string) {
	m.remindersPublished.WithLabelValues(urgency).Inc()
}

func (m *Metrics) ObserveScan(err error) {
	if err != nil {
		m.reminderScans.WithLabelValues("error").Inc()
		return
	}
	m.reminderScans.WithLabelValues("ok").Inc()
}

// ObserveHTTP records one handled request. route should be the mux pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
