// Package metrics provides Prometheus metrics for the breakdown records service
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Record store metrics
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakdown_store_operations_total",
			Help: "Total number of record store operations",
		},
		[]string{"op", "outcome"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "breakdown_store_operation_duration_seconds",
			Help:    "Duration of record store operations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"op"},
	)

	// Load metrics
	LoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakdown_loads_total",
			Help: "Total number of record list loads by source",
		},
		[]string{"source", "cause"},
	)

	Degraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "breakdown_degraded",
			Help: "1 when records are served from the local cache because the record store failed",
		},
	)

	RecordsInMemory = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "breakdown_records_in_memory",
			Help: "Number of records currently held by the synchronization controller",
		},
	)

	// Local cache metrics
	CacheFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakdown_local_cache_failures_total",
			Help: "Total number of swallowed local cache failures",
		},
		[]string{"op"},
	)

	// Export metrics
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakdown_exports_total",
			Help: "Total number of record exports",
		},
		[]string{"format", "status"},
	)
)

// RecordStoreCall records a finished record store call
func RecordStoreCall(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	StoreOperationsTotal.WithLabelValues(op, outcome).Inc()
	StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetDegraded toggles the degraded gauge
func SetDegraded(degraded bool) {
	if degraded {
		Degraded.Set(1)
		return
	}
	Degraded.Set(0)
}
