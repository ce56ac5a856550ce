package observability

import (
	"strconv"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the portal.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	httpDuration     *prometheus.HistogramVec
	operationLatency *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	provisioning     *prometheus.CounterVec
	overdueMarked    prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by method and status code.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "code"},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_external_errors_total",
				Help: "Total errors from the hosted store and auth service.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_notifications_total",
				Help: "User-visible notifications raised by hooks, by level.",
			},
			[]string{"level"},
		),
		provisioning: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_provisioning_total",
				Help: "Provisioning endpoint outcomes.",
			},
			[]string{"result"},
		),
		overdueMarked: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_payments_marked_overdue_total",
				Help: "Pending payments flipped to overdue by the sweeper.",
			},
		),
	}
}

// Provisioning outcome labels.
const (
	ProvisionSuccess     = "success"
	ProvisionFailed      = "failed"
	ProvisionCompensated = "compensated"
	ProvisionReplayed    = "replayed"
)

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(method string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordOperation records the duration of a service operation.
func (m *Metrics) RecordOperation(operation string, d time.Duration) {
	m.operationLatency.WithLabelValues(operation).Observe(d.Seconds())
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

// IncrNotification counts a raised notification.
func (m *Metrics) IncrNotification(level string) {
	m.notifications.WithLabelValues(level).Inc()
}

// IncrProvisioning counts a provisioning outcome.
func (m *Metrics) IncrProvisioning(result string) {
	m.provisioning.WithLabelValues(result).Inc()
}

// AddOverdue counts payments flipped to overdue.
func (m *Metrics) AddOverdue(n int) {
	m.overdueMarked.Add(float64(n))
}

// GetAdminSnapshot returns the counters shown on GET /v1/admin/stats.
func (m *Metrics) GetAdminSnapshot() *domain.AdminStats {
	hits := getCounterValue(m.cacheHits, "identity") + getCounterValue(m.cacheHits, "dashboard_config")
	misses := getCounterValue(m.cacheMisses, "identity") + getCounterValue(m.cacheMisses, "dashboard_config")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	overdue := &dto.Metric{}
	_ = m.overdueMarked.Write(overdue)

	return &domain.AdminStats{
		UsersProvisioned:      int64(getCounterValue(m.provisioning, ProvisionSuccess)),
		ProvisioningFailures:  int64(getCounterValue(m.provisioning, ProvisionFailed)),
		CompensatedUsers:      int64(getCounterValue(m.provisioning, ProvisionCompensated)),
		PaymentsMarkedOverdue: int64(overdue.GetCounter().GetValue()),
		ErrorNotifications:    int64(getCounterValue(m.notifications, "error")),
		CacheHitRate:          hitRate,
		Period:                "since_start",
	}
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
