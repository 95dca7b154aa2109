// Package metrics provides Prometheus metrics for imgvault.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "imgvault"

var (
	// OptimizeTotal counts optimize calls by outcome.
	OptimizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimize_total",
			Help:      "Total number of optimize operations",
		},
		[]string{"status"},
	)

	// OptimizeDuration measures the full pipeline duration.
	OptimizeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimize_duration_seconds",
			Help:      "Duration of optimize operations in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)

	// VariantBytes counts bytes written per tier.
	VariantBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variant_bytes_total",
			Help:      "Total bytes written per variant tier",
		},
		[]string{"tier"},
	)

	// CompressionRatio observes the percentage saved per optimized image.
	CompressionRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compression_ratio_percent",
			Help:      "Distribution of compression ratios in percent",
			Buckets:   []float64{-50, 0, 25, 50, 75, 90, 95, 99},
		},
	)

	// JobsTotal counts background jobs by final state.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of background optimize jobs",
		},
		[]string{"state"},
	)

	// GCReclaimedBytes counts bytes removed by garbage collection by kind.
	GCReclaimedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gc_reclaimed_bytes_total",
			Help:      "Total bytes reclaimed by garbage collection",
		},
		[]string{"kind"},
	)

	// ErrorsTotal counts errors by operation.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"operation"},
	)
)

// RecordOptimize records one optimize call.
func RecordOptimize(status string, duration float64) {
	OptimizeTotal.WithLabelValues(status).Inc()
	OptimizeDuration.WithLabelValues(status).Observe(duration)
}

// RecordVariant records the size of one written variant.
func RecordVariant(tier string, size int64) {
	VariantBytes.WithLabelValues(tier).Add(float64(size))
}

// RecordCompression records the compression ratio of one manifest.
func RecordCompression(ratio float64) {
	CompressionRatio.Observe(ratio)
}

// RecordJob records a job reaching a terminal state.
func RecordJob(state string) {
	JobsTotal.WithLabelValues(state).Inc()
}

// RecordGC records the bytes a non-dry garbage collection removed.
func RecordGC(stagingBytes, tempBytes int64) {
	GCReclaimedBytes.WithLabelValues("staging").Add(float64(stagingBytes))
	GCReclaimedBytes.WithLabelValues("temp").Add(float64(tempBytes))
}

// RecordError records an error.
func RecordError(operation string) {
	ErrorsTotal.WithLabelValues(operation).Inc()
}
