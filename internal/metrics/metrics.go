// Package metrics exposes the Prometheus collectors for rating recomputation
// and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RatingRecomputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "series_rating_recomputations_total",
			Help: "Number of committed series rating recomputations by trigger",
		},
		[]string{"trigger"},
	)

	RatingRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "series_rating_recompute_duration_seconds",
			Help:    "Time spent reloading a ledger and storing the new rating",
			Buckets: prometheus.DefBuckets,
		},
	)

	LedgerMutationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_mutation_failures_total",
			Help: "Ledger mutations rolled back because of a persistence error",
		},
		[]string{"op"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordRecompute counts one committed recomputation.
func RecordRecompute(trigger string, took time.Duration) {
	RatingRecomputations.WithLabelValues(trigger).Inc()
	RatingRecomputeDuration.Observe(took.Seconds())
}

// RecordMutationFailure counts a rolled back ledger mutation.
func RecordMutationFailure(op string) {
	LedgerMutationFailures.WithLabelValues(op).Inc()
}

// RecordRequest records one served HTTP request.
func RecordRequest(method, route string, status int, took time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// PoolStat is the subset of pgxpool.Stat exported as gauges.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// RegisterPoolGauges exports connection pool occupancy. stat may return nil
// before the pool is ready.
func RegisterPoolGauges(reg prometheus.Registerer, stat func() PoolStat) error {
	gauge := func(name, help string, read func(PoolStat) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			s := stat()
			if s == nil {
				return 0
			}
			return float64(read(s))
		})
	}
	collectors := []prometheus.Collector{
		gauge("db_pool_acquired_conns", "Connections currently checked out", PoolStat.AcquiredConns),
		gauge("db_pool_idle_conns", "Idle connections in the pool", PoolStat.IdleConns),
		gauge("db_pool_total_conns", "Total connections in the pool", PoolStat.TotalConns),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
