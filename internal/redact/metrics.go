package redact

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedactionsTotal counts secrets removed from transcripts, by gitleaks rule.
var RedactionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "perceptd",
		Subsystem: "redact",
		Name:      "secrets_total",
		Help:      "Secrets redacted from perception records before storage",
	},
	[]string{"rule"},
)
