package redact

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/logging"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
	"github.com/fyrsmithlabs/perceptd/internal/perception"
)

// Sink redacts each record before handing it to the next sink. Entities
// and semantic roles that are fragments of a secret are dropped.
type Sink struct {
	next     perception.Sink
	redactor *Redactor
	logger   *logging.Logger
}

// NewSink wraps next.
func NewSink(next perception.Sink, redactor *Redactor, logger *logging.Logger) *Sink {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Sink{next: next, redactor: redactor, logger: logger.Named("redact")}
}

// Remember implements perception.Sink.
func (s *Sink) Remember(ctx context.Context, id, userID string, rec nlu.PerceptionRecord) error {
	res := s.redactor.Redact(rec.Transcript)
	if len(res.Findings) > 0 {
		rec = scrubRecord(rec, res)

		rules := make([]string, 0, len(res.Findings))
		for _, f := range res.Findings {
			RedactionsTotal.WithLabelValues(f.RuleID).Inc()
			rules = append(rules, f.RuleID)
		}
		s.logger.Info(ctx, "secrets redacted from transcript",
			zap.String("analysis.id", id),
			zap.Strings("rules", rules),
		)
	}
	return s.next.Remember(ctx, id, userID, rec)
}

func scrubRecord(rec nlu.PerceptionRecord, res Result) nlu.PerceptionRecord {
	rec.Transcript = res.Text

	entities := make([]nlu.Entity, 0, len(rec.Entities))
	for _, e := range rec.Entities {
		if !res.containsSecret(e.Text) {
			entities = append(entities, e)
		}
	}
	rec.Entities = entities

	roles := make([]nlu.SemanticRole, 0, len(rec.SemanticRoles))
	for _, r := range rec.SemanticRoles {
		if !res.containsSecret(r.Word) {
			roles = append(roles, r)
		}
	}
	rec.SemanticRoles = roles
	return rec
}
