package observability

import (
	"time"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const (
	transitionsMetric = "certificacion_transitions_total"
	rejectionsMetric  = "certificacion_rejections_total"
)

// Metrics holds all Prometheus metrics of the certification service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	txAttempts      *prometheus.CounterVec
	txRetries       *prometheus.CounterVec
	txFailures      *prometheus.CounterVec
	txDuration      *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "certificacion_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: transitionsMetric,
				Help: "Lifecycle operations that committed.",
			},
			[]string{"operation"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: rejectionsMetric,
				Help: "Lifecycle operations rejected by a business rule.",
			},
			[]string{"operation"},
		),
		txAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificacion_tx_attempts_total",
				Help: "Transaction attempts, including retries.",
			},
			[]string{"operation"},
		),
		txRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificacion_tx_retries_total",
				Help: "Transactions re-run after a transient fault.",
			},
			[]string{"operation"},
		),
		txFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificacion_tx_failures_total",
				Help: "Transactions that exhausted their retries.",
			},
			[]string{"operation"},
		),
		txDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "certificacion_tx_duration_seconds",
				Help:    "Duration of a unit of work including retries.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificacion_external_errors_total",
				Help: "Total errors from external collaborators.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificacion_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificacion_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificacion_expiration_notifications_total",
				Help: "Expiration notifications by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrTransition counts a committed lifecycle operation.
func (m *Metrics) IncrTransition(operation string) {
	m.transitions.WithLabelValues(operation).Inc()
}

// IncrRejection counts a business-rule rejection.
func (m *Metrics) IncrRejection(operation string) {
	m.rejections.WithLabelValues(operation).Inc()
}

// RecordTx records the outcome of one unit of work.
func (m *Metrics) RecordTx(operation string, attempts int, failed bool, d time.Duration) {
	m.txAttempts.WithLabelValues(operation).Add(float64(attempts))
	if attempts > 1 {
		m.txRetries.WithLabelValues(operation).Add(float64(attempts - 1))
	}
	if failed {
		m.txFailures.WithLabelValues(operation).Inc()
	}
	m.txDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrNotification counts an expiration notification ("sent" or "failed").
func (m *Metrics) IncrNotification(outcome string) {
	m.notifications.WithLabelValues(outcome).Inc()
}

// LifecycleSnapshot returns the current counters for GET /v1/metrics/lifecycle.
// Prometheus counters are cumulative since process start.
func (m *Metrics) LifecycleSnapshot() *domain.LifecycleMetrics {
	snap := &domain.LifecycleMetrics{
		Transitions: map[string]float64{},
		Rejections:  map[string]float64{},
	}

	families, err := m.Registry.Gather()
	if err == nil {
		for _, mf := range families {
			switch mf.GetName() {
			case transitionsMetric:
				collectByLabel(mf, "operation", snap.Transitions)
			case rejectionsMetric:
				collectByLabel(mf, "operation", snap.Rejections)
			}
		}
	}

	snap.TxAttempts = sumCounterVec(m.txAttempts)
	snap.TxRetries = sumCounterVec(m.txRetries)
	snap.TxFailures = sumCounterVec(m.txFailures)
	snap.NotificationsSent = getCounterValue(m.notifications, "sent")
	snap.NotificationFailures = getCounterValue(m.notifications, "failed")

	hits := getCounterValue(m.cacheHits, "tree")
	misses := getCounterValue(m.cacheMisses, "tree")
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	return snap
}

func collectByLabel(mf *dto.MetricFamily, label string, into map[string]float64) {
	for _, metric := range mf.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == label {
				into[lp.GetValue()] += metric.GetCounter().GetValue()
			}
		}
	}
}

// sumCounterVec adds up every label combination of a CounterVec.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	total := 0.0
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		total += m.GetCounter().GetValue()
	}
	return total
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
