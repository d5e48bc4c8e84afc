package perception

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UtterancesTotal counts analyzed utterances by final mood.
	UtterancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perceptd",
			Subsystem: "perception",
			Name:      "utterances_total",
			Help:      "Total number of analyzed utterances by overall mood",
		},
		[]string{"mood"},
	)

	// EmotionsTotal counts emotion labels emitted across utterances.
	EmotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perceptd",
			Subsystem: "perception",
			Name:      "emotions_total",
			Help:      "Total number of emotion labels emitted",
		},
		[]string{"emotion"},
	)

	// DegradedTotal counts signals that were missing or rejected.
	// Labels: signal (polarity, valence, pitch, tagging)
	DegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perceptd",
			Subsystem: "perception",
			Name:      "degraded_total",
			Help:      "Total number of degraded signals by name",
		},
		[]string{"signal"},
	)

	// AnalysisDuration tracks end-to-end analysis latency, tagging included.
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "perceptd",
			Subsystem: "perception",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of utterance analysis in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// QueueDepth is the number of records waiting in the async sink.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "perceptd",
			Subsystem: "memory",
			Name:      "queue_depth",
			Help:      "Perception records waiting to be written",
		},
	)

	// DroppedTotal counts records dropped because the sink queue was full or closed.
	DroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "perceptd",
			Subsystem: "memory",
			Name:      "dropped_total",
			Help:      "Perception records dropped before reaching memory",
		},
	)

	// LexiconReloadsTotal counts engine rebuilds after lexicon file changes.
	// Labels: result (success, error)
	LexiconReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perceptd",
			Subsystem: "perception",
			Name:      "lexicon_reloads_total",
			Help:      "Lexicon reloads by result",
		},
		[]string{"result"},
	)
)
