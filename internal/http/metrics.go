package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"musicresolver/internal/flood"
)

const metricsNamespace = "musicresolver"

// Metrics holds the service's Prometheus collectors on a private registry. It implements
// core.Recorder so the resolver can report into it.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	ResolutionsTotal     *prometheus.CounterVec
	SearchDuration       *prometheus.HistogramVec
	CacheLookupsTotal    *prometheus.CounterVec
	FloodRejectionsTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"endpoint", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Time spent serving API requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "resolutions_total",
				Help:      "Total number of resolutions by operation, provider and outcome",
			},
			[]string{"operation", "provider", "status"},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "search_duration_seconds",
				Help:      "Time spent running search filter chains",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "search_cache_lookups_total",
				Help:      "Total number of search cache lookups",
			},
			[]string{"result"},
		),
		FloodRejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "flood_rejections_total",
				Help:      "Total number of requests rejected by the per-client rate limit",
			},
		),
	}

	metrics.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.RequestsTotal,
		metrics.RequestDuration,
		metrics.ResolutionsTotal,
		metrics.SearchDuration,
		metrics.CacheLookupsTotal,
		metrics.FloodRejectionsTotal,
	)

	return metrics
}

func (m *Metrics) ObserveResolution(operation, provider, status string) {
	m.ResolutionsTotal.WithLabelValues(operation, provider, status).Inc()
}

func (m *Metrics) ObserveSearch(duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SearchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRequest(endpoint string, code int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(endpoint, statusLabel(code)).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Metrics) RecordFloodRejection() {
	m.FloodRejectionsTotal.Inc()
}

// WatchFloodgate exports how many clients the floodgate is tracking.
func (m *Metrics) WatchFloodgate(floodgate *flood.Floodgate) {
	m.Registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "flood_active_clients",
			Help:      "Number of clients tracked by the rate limiter",
		},
		func() float64 { return float64(floodgate.GetStats().ActiveClients) },
	))
}
