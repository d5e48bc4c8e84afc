package memory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tier labels.
const (
	TierWorking  = "working"
	TierLongTerm = "long_term"
)

var (
	// WritesTotal counts record writes per tier.
	// Labels: tier (working, long_term), result (success, error)
	WritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perceptd",
			Subsystem: "memory",
			Name:      "writes_total",
			Help:      "Total number of perception record writes by tier and result",
		},
		[]string{"tier", "result"},
	)

	// RecallDuration tracks how long tier lookups take.
	// Labels: tier (working, long_term)
	RecallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "perceptd",
			Subsystem: "memory",
			Name:      "recall_duration_seconds",
			Help:      "Duration of memory recall operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tier"},
	)
)

// recordWrite records the outcome of a tier write.
func recordWrite(tier string, err error) {
	if err != nil {
		WritesTotal.WithLabelValues(tier, "error").Inc()
		return
	}
	WritesTotal.WithLabelValues(tier, "success").Inc()
}
