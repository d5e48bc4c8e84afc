package transcribe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transcription outcomes.
const (
	resultCompleted = "completed"
	resultError     = "error"
	resultTimeout   = "timeout"
	resultFailed    = "failed"
)

// RequestsTotal counts transcription jobs by outcome.
// Labels: result (completed, error, timeout, failed)
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "perceptd",
		Subsystem: "transcription",
		Name:      "requests_total",
		Help:      "Total number of transcription jobs by result",
	},
	[]string{"result"},
)
