package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	calculationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainingload",
		Subsystem: "engine",
		Name:      "calculations_total",
		Help:      "Number of completed ACWR calculations, labeled by evaluation strategy.",
	}, []string{"optimization"})

	dataGapCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainingload",
		Subsystem: "engine",
		Name:      "data_gaps_total",
		Help:      "Number of calculations that ended in a data-sufficiency gap, labeled by kind.",
	}, []string{"kind"})

	metricsPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainingload",
		Subsystem: "persistence",
		Name:      "last_metrics_upsert_timestamp_seconds",
		Help:      "Unix timestamp of the most recent daily-metrics upsert.",
	})

	bulkRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trainingload",
		Subsystem: "bulk",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of bulk recompute runs.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	bulkUserFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trainingload",
		Subsystem: "bulk",
		Name:      "user_failures_total",
		Help:      "Number of per-user partitions that failed during bulk recompute runs.",
	})
)

func init() {
	prometheus.MustRegister(calculationCounter, dataGapCounter, metricsPersistGauge, bulkRunDuration, bulkUserFailures)
}

// RecordCalculation counts one completed calculation per strategy tag; the
// plain path reports an empty tag as "standard".
func RecordCalculation(optimization string) {
	if optimization == "" {
		optimization = "standard"
	}
	calculationCounter.WithLabelValues(optimization).Inc()
}

// RecordDataGap counts a calculation that returned a data gap.
func RecordDataGap(kind string) {
	dataGapCounter.WithLabelValues(kind).Inc()
}

// RecordMetricsPersisted updates the upsert watermark gauge.
func RecordMetricsPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	metricsPersistGauge.Set(float64(ts.Unix()))
}

// ObserveBulkRun records the duration of one bulk recompute run.
func ObserveBulkRun(d time.Duration) {
	bulkRunDuration.Observe(d.Seconds())
}

// RecordBulkUserFailure counts a failed per-user partition.
func RecordBulkUserFailure() {
	bulkUserFailures.Inc()
}
