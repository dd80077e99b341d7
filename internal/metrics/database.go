package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	// DBQueryDuration records repository query latency
	DBQueryDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// DBErrors counts database errors by operation and type
	DBErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_errors_total",
			Help:      "Total number of database errors",
		},
		[]string{"operation", "error_type"},
	)
)

var (
	dbConnsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "connections"),
		"Database pool connections by state",
		[]string{"state"}, nil,
	)
	dbMaxConnsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "connections_max"),
		"Maximum number of database connections allowed by the pool",
		nil, nil,
	)
	dbAcquireWaitDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "acquire_wait_seconds_total"),
		"Cumulative time spent waiting for a pool connection",
		nil, nil,
	)
)

// PoolCollector reads pgxpool statistics at scrape time.
type PoolCollector struct {
	pool *pgxpool.Pool
}

// NewPoolCollector returns a collector for pool. A nil pool reports nothing.
func NewPoolCollector(pool *pgxpool.Pool) *PoolCollector {
	return &PoolCollector{pool: pool}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- dbConnsDesc
	ch <- dbMaxConnsDesc
	ch <- dbAcquireWaitDesc
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(dbConnsDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()), "in_use")
	ch <- prometheus.MustNewConstMetric(dbConnsDesc, prometheus.GaugeValue, float64(stat.IdleConns()), "idle")
	ch <- prometheus.MustNewConstMetric(dbConnsDesc, prometheus.GaugeValue, float64(stat.TotalConns()), "total")
	ch <- prometheus.MustNewConstMetric(dbMaxConnsDesc, prometheus.GaugeValue, float64(stat.MaxConns()))
	ch <- prometheus.MustNewConstMetric(dbAcquireWaitDesc, prometheus.CounterValue, stat.AcquireDuration().Seconds())
}

// RecordQuery records metrics for a repository query. Call it with defer:
//
//	start := time.Now()
//	defer func() { metrics.RecordQuery("get_forward", start, err) }()
func RecordQuery(operation string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err == nil {
		return
	}
	errorType := "query_error"
	switch {
	case errors.Is(err, context.Canceled):
		errorType = "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		errorType = "timeout"
	}
	DBErrors.WithLabelValues(operation, errorType).Inc()
}
