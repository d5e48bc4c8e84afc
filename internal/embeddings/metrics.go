package embeddings

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EmbedDuration tracks embedding latency.
	// Labels: provider (fastembed, tei), operation (documents, query)
	EmbedDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "perceptd",
			Subsystem: "embeddings",
			Name:      "duration_seconds",
			Help:      "Duration of embedding calls in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"provider", "operation"},
	)

	// EmbedTextsTotal counts texts embedded, perception records and recall
	// queries alike.
	EmbedTextsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perceptd",
			Subsystem: "embeddings",
			Name:      "texts_total",
			Help:      "Texts sent for embedding",
		},
		[]string{"provider"},
	)

	// EmbedErrorsTotal counts failed embedding calls.
	EmbedErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perceptd",
			Subsystem: "embeddings",
			Name:      "errors_total",
			Help:      "Failed embedding calls",
		},
		[]string{"provider", "operation"},
	)
)

// observe records one embedding call. Use with defer and a named error.
func observe(provider, operation string, start time.Time, texts int, err error) {
	EmbedDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		EmbedErrorsTotal.WithLabelValues(provider, operation).Inc()
		return
	}
	EmbedTextsTotal.WithLabelValues(provider).Add(float64(texts))
}
